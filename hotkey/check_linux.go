package hotkey

import "os"

// The hook reads key events through the X record extension.
func platformCheck() error {
	return displayCheck(os.Getenv)
}

func displayCheck(getenv func(string) string) error {
	if getenv("DISPLAY") == "" {
		return ErrNoDisplay
	}
	return nil
}
