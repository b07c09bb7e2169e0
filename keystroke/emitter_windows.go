//go:build windows

package keystroke

import (
	"fmt"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procSendInput = user32.NewProc("SendInput")
)

const (
	inputKeyboard    = 1
	keyeventfKeyUp   = 0x0002
	keyeventfUnicode = 0x0004
)

type keybdInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

// input mirrors INPUT; padding covers the larger MOUSEINPUT member of the union.
type input struct {
	inputType uint32
	ki        keybdInput
	padding   [8]byte
}

// unicodeEmitter injects characters with KEYEVENTF_UNICODE. No virtual keys
// or modifiers are involved, so any BMP or astral character can be typed.
type unicodeEmitter struct{}

// NewEmitter returns the platform Emitter.
func NewEmitter() (Emitter, error) {
	if err := procSendInput.Find(); err != nil {
		return nil, fmt.Errorf("load SendInput: %w", err)
	}
	return unicodeEmitter{}, nil
}

func (unicodeEmitter) KeyDown(r rune) error { return sendUnicode(r, keyeventfUnicode) }

func (unicodeEmitter) KeyUp(r rune) error { return sendUnicode(r, keyeventfUnicode|keyeventfKeyUp) }

func sendUnicode(r rune, flags uint32) error {
	units := utf16.Encode([]rune{r})
	inputs := make([]input, len(units))
	for i, u := range units {
		inputs[i] = input{
			inputType: inputKeyboard,
			ki:        keybdInput{wScan: u, dwFlags: flags},
		}
	}

	n, _, err := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if int(n) != len(inputs) {
		return fmt.Errorf("SendInput: %w", err)
	}
	return nil
}
