// Package types provides shared type definitions for the application.
package types

import "time"

// Artifact is a finalized recording on disk.
// The file is flushed and closed before an Artifact value is handed out.
type Artifact struct {
	Path       string    `json:"path"`
	Channels   int       `json:"channels"`
	SampleRate int       `json:"sample_rate"`
	BitDepth   int       `json:"bit_depth"`
	Frames     int64     `json:"frames"` // Samples per channel
	StartedAt  time.Time `json:"started_at"`
}

// Duration returns the length of the recorded audio.
func (a Artifact) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(a.Frames) * time.Second / time.Duration(a.SampleRate)
}

// Pacing controls how fast synthetic keystrokes are emitted.
type Pacing struct {
	WordDelay     time.Duration `json:"word_delay"`      // Sleep before each word
	KeyEventDelay time.Duration `json:"key_event_delay"` // Sleep between characters
}

// PacingFromMillis builds a Pacing from millisecond values as stored in config.
func PacingFromMillis(wordDelay, keyEventDelay int) Pacing {
	return Pacing{
		WordDelay:     time.Duration(wordDelay) * time.Millisecond,
		KeyEventDelay: time.Duration(keyEventDelay) * time.Millisecond,
	}
}

// OutputJob is one piece of recognized text waiting to be typed.
type OutputJob struct {
	Text   string `json:"text"`
	Pacing Pacing `json:"pacing"`
}

// Output modes.
const (
	OutputModeType  = "type"  // Synthetic per-character keystrokes
	OutputModePaste = "paste" // Clipboard write + paste shortcut
)

// LanguageAuto lets the backend detect the spoken language.
const LanguageAuto = "auto"
