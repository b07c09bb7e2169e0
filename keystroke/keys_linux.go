package keystroke

import "github.com/micmonay/keybd_event"

const (
	keyDot          = keybd_event.VK_DOT
	keyQuote        = keybd_event.VK_APOSTROPHE
	keyLeftBracket  = keybd_event.VK_LEFTBRACE
	keyRightBracket = keybd_event.VK_RIGHTBRACE
)
