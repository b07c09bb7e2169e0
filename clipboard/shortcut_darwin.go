//go:build darwin

package clipboard

import "github.com/micmonay/keybd_event"

// sendPaste presses Cmd+V.
func sendPaste(kb *keybd_event.KeyBonding) error {
	kb.Clear()
	kb.HasSuper(true)
	kb.SetKeys(keybd_event.VK_V)
	return kb.Launching()
}
