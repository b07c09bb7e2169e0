package app

import "fmt"

// State is the controller state.
type State int

const (
	Idle    State = iota // not recording
	Armed                // recording in progress
	Stopped              // terminal, all input ignored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// User-facing notification messages.
const (
	msgCaptureFailed    = "Could not start recording: %v"
	msgStopFailed       = "Could not finish recording: %v"
	msgTranscribeFailed = "Transcription failed: %v"
	msgOutputFailed     = "Could not type transcription: %v"
)
