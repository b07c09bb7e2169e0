//go:build darwin || linux

package keystroke

import (
	"fmt"
	"runtime"
	"time"

	"github.com/micmonay/keybd_event"
)

var letterKeys = [26]int{
	keybd_event.VK_A, keybd_event.VK_B, keybd_event.VK_C, keybd_event.VK_D,
	keybd_event.VK_E, keybd_event.VK_F, keybd_event.VK_G, keybd_event.VK_H,
	keybd_event.VK_I, keybd_event.VK_J, keybd_event.VK_K, keybd_event.VK_L,
	keybd_event.VK_M, keybd_event.VK_N, keybd_event.VK_O, keybd_event.VK_P,
	keybd_event.VK_Q, keybd_event.VK_R, keybd_event.VK_S, keybd_event.VK_T,
	keybd_event.VK_U, keybd_event.VK_V, keybd_event.VK_W, keybd_event.VK_X,
	keybd_event.VK_Y, keybd_event.VK_Z,
}

var digitKeys = [10]int{
	keybd_event.VK_0, keybd_event.VK_1, keybd_event.VK_2, keybd_event.VK_3,
	keybd_event.VK_4, keybd_event.VK_5, keybd_event.VK_6, keybd_event.VK_7,
	keybd_event.VK_8, keybd_event.VK_9,
}

// symbolKeys places printable ASCII punctuation on a US layout.
var symbolKeys = map[rune]struct {
	code  int
	shift bool
}{
	',': {keybd_event.VK_COMMA, false}, '<': {keybd_event.VK_COMMA, true},
	'.': {keyDot, false}, '>': {keyDot, true},
	'/': {keybd_event.VK_SLASH, false}, '?': {keybd_event.VK_SLASH, true},
	';': {keybd_event.VK_SEMICOLON, false}, ':': {keybd_event.VK_SEMICOLON, true},
	'\'': {keyQuote, false}, '"': {keyQuote, true},
	'-': {keybd_event.VK_MINUS, false}, '_': {keybd_event.VK_MINUS, true},
	'=': {keybd_event.VK_EQUAL, false}, '+': {keybd_event.VK_EQUAL, true},
	'[': {keyLeftBracket, false}, '{': {keyLeftBracket, true},
	']': {keyRightBracket, false}, '}': {keyRightBracket, true},
	'\\': {keybd_event.VK_BACKSLASH, false}, '|': {keybd_event.VK_BACKSLASH, true},
	'`': {keybd_event.VK_GRAVE, false}, '~': {keybd_event.VK_GRAVE, true},
	'!': {keybd_event.VK_1, true}, '@': {keybd_event.VK_2, true},
	'#': {keybd_event.VK_3, true}, '$': {keybd_event.VK_4, true},
	'%': {keybd_event.VK_5, true}, '^': {keybd_event.VK_6, true},
	'&': {keybd_event.VK_7, true}, '*': {keybd_event.VK_8, true},
	'(': {keybd_event.VK_9, true}, ')': {keybd_event.VK_0, true},
}

// typographic folds the curly quotes Whisper emits onto their ASCII keys.
var typographic = map[rune]rune{
	'\u2018': '\'', '\u2019': '\'',
	'\u201C': '"', '\u201D': '"',
}

// keyEmitter drives a virtual keyboard with US-layout codes.
// Upper-case letters and shifted symbols set the shift flag.
type keyEmitter struct {
	kb keybd_event.KeyBonding
}

// NewEmitter returns the platform Emitter.
func NewEmitter() (Emitter, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("create virtual keyboard: %w", err)
	}
	// uinput needs a moment before the new device receives events.
	if runtime.GOOS == "linux" {
		time.Sleep(2 * time.Second)
	}
	return &keyEmitter{kb: kb}, nil
}

func (e *keyEmitter) KeyDown(r rune) error {
	if err := e.bind(r); err != nil {
		return err
	}
	return e.kb.Press()
}

func (e *keyEmitter) KeyUp(r rune) error {
	if err := e.bind(r); err != nil {
		return err
	}
	return e.kb.Release()
}

func (e *keyEmitter) bind(r rune) error {
	code, shift, ok := keyFor(r)
	if !ok {
		return ErrUnmappable
	}
	e.kb.Clear()
	e.kb.SetKeys(code)
	e.kb.HasSHIFT(shift)
	return nil
}

func keyFor(r rune) (code int, shift bool, ok bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return letterKeys[r-'a'], false, true
	case r >= 'A' && r <= 'Z':
		return letterKeys[r-'A'], true, true
	case r >= '0' && r <= '9':
		return digitKeys[r-'0'], false, true
	case r == ' ':
		return keybd_event.VK_SPACE, false, true
	}
	if a, ok := typographic[r]; ok {
		r = a
	}
	if k, ok := symbolKeys[r]; ok {
		return k.code, k.shift, true
	}
	return 0, false, false
}
