// Package keystroke types text into the focused application as synthetic key events.
package keystroke

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.aimuz.me/murmur/internal/types"
	"golang.org/x/text/unicode/norm"
)

// ErrUnmappable is returned by an Emitter that cannot produce a character.
var ErrUnmappable = errors.New("character has no key mapping")

// Emitter sends a single key transition for one character to the OS.
type Emitter interface {
	KeyDown(r rune) error
	KeyUp(r rune) error
}

// Synthesizer turns text into paced key-down/key-up pairs.
// Calls are serialized so concurrent callers never interleave characters.
type Synthesizer struct {
	mu      sync.Mutex
	emitter Emitter
	sleep   func(time.Duration)
}

// New creates a Synthesizer on top of emitter.
func New(emitter Emitter) *Synthesizer {
	return &Synthesizer{emitter: emitter, sleep: time.Sleep}
}

// TypeText types text word by word. It sleeps p.WordDelay before every word and
// p.KeyEventDelay before every character except the first. Words are separated
// by a single typed space. Blank text emits nothing.
func (s *Synthesizer) TypeText(text string, p types.Pacing) error {
	words := strings.Fields(norm.NFC.String(text))
	if len(words) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	first := true
	skipped := 0
	for i, word := range words {
		s.sleep(p.WordDelay)

		chars := []rune(word)
		if i > 0 {
			chars = append([]rune{' '}, chars...)
		}
		for _, r := range chars {
			if !first {
				s.sleep(p.KeyEventDelay)
			}
			first = false

			if err := s.press(r); err != nil {
				if errors.Is(err, ErrUnmappable) {
					skipped++
					continue
				}
				return fmt.Errorf("type %q: %w", r, err)
			}
		}
	}

	if skipped > 0 {
		slog.Warn("skipped characters without key mapping", "count", skipped, "chars", len([]rune(text)))
	}
	return nil
}

func (s *Synthesizer) press(r rune) error {
	if err := s.emitter.KeyDown(r); err != nil {
		return err
	}
	return s.emitter.KeyUp(r)
}
