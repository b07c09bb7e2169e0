// Package clipboard delivers text by pasting it through the system clipboard.
package clipboard

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
	"go.aimuz.me/murmur/internal/types"
)

const (
	settleDelay  = 80 * time.Millisecond  // let the clipboard owner publish the new text
	restoreDelay = 120 * time.Millisecond // let the target read it before restoring
)

// Board is the system clipboard.
type Board interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type systemBoard struct{}

func (systemBoard) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (systemBoard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// Paster writes text to the clipboard, sends the paste shortcut and then
// restores the previous clipboard content.
type Paster struct {
	mu       sync.Mutex
	board    Board
	shortcut func() error
	sleep    func(time.Duration)
}

// NewPaster returns a Paster using the system clipboard and a virtual keyboard.
func NewPaster() (*Paster, error) {
	if clipboard.Unsupported {
		return nil, fmt.Errorf("clipboard is not supported on this system")
	}
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, fmt.Errorf("create virtual keyboard: %w", err)
	}
	return &Paster{
		board:    systemBoard{},
		shortcut: func() error { return sendPaste(&kb) },
		sleep:    time.Sleep,
	}, nil
}

// TypeText pastes text into the focused application. Pacing does not apply to a
// single paste. Blank text is ignored.
func (p *Paster) TypeText(text string, _ types.Pacing) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	orig, readErr := p.board.ReadAll()
	if err := p.board.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	p.sleep(settleDelay)

	if err := p.shortcut(); err != nil {
		return fmt.Errorf("send paste shortcut: %w", err)
	}
	p.sleep(restoreDelay)

	if readErr != nil {
		slog.Debug("clipboard not restored", "error", readErr)
		return nil
	}
	if err := p.board.WriteAll(orig); err != nil {
		slog.Warn("restore clipboard", "error", err)
	}
	return nil
}
