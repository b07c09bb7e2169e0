//go:build !darwin

package clipboard

import "github.com/micmonay/keybd_event"

// sendPaste presses Ctrl+V.
func sendPaste(kb *keybd_event.KeyBonding) error {
	kb.Clear()
	kb.HasCTRL(true)
	kb.SetKeys(keybd_event.VK_V)
	return kb.Launching()
}
