package audiocapture

import (
	"errors"
	"fmt"
)

// ErrNoInputDevice is returned when the host has no default input device.
var ErrNoInputDevice = errors.New("no input device available")

// StreamError reports a device that could not be opened or started.
type StreamError struct {
	Device string
	Op     string // "open" or "start"
	Err    error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s input stream %q: %v", e.Op, e.Device, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// Device describes an input device at its native format.
type Device struct {
	Name       string
	Channels   int
	SampleRate float64

	Handle any // backend-specific device reference
}

// Stream is an open device stream.
// Stop must not return until the final sample callback has returned.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Backend is the host audio system.
type Backend interface {
	// DefaultInput returns the default input device or an error wrapping ErrNoInputDevice.
	DefaultInput() (Device, error)

	// Open opens an input stream on dev that delivers interleaved float32
	// samples in [-1, 1] to cb from a device-driven thread.
	Open(dev Device, cb func(in []float32)) (Stream, error)
}
