//go:build !darwin && !linux

package hotkey

func platformCheck() error { return nil }
