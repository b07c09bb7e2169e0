package keystroke

import "github.com/micmonay/keybd_event"

const (
	keyDot          = keybd_event.VK_Period
	keyQuote        = keybd_event.VK_Quote
	keyLeftBracket  = keybd_event.VK_LeftBracket
	keyRightBracket = keybd_event.VK_RightBracket
)
