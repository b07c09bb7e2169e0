// Package app provides the push-to-talk dictation service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.aimuz.me/murmur/audiocapture"
	"go.aimuz.me/murmur/audiocapture/hostaudio"
	"go.aimuz.me/murmur/clipboard"
	"go.aimuz.me/murmur/config"
	"go.aimuz.me/murmur/hotkey"
	"go.aimuz.me/murmur/internal/types"
	"go.aimuz.me/murmur/keystroke"
	"go.aimuz.me/murmur/notify"
	"go.aimuz.me/murmur/stt"
)

// Service owns the OS resources behind a Controller.
// This struct focuses on wiring; behaviour lives in Controller.
type Service struct {
	cfg        *config.Config
	audio      *hostaudio.PortAudio
	session    *audiocapture.Session
	signal     *hotkey.Signal
	controller *Controller
}

// New builds a Service from cfg. A *hotkey.BindingError means the hotkey
// cannot be used and the process should exit.
func New(cfg *config.Config) (*Service, error) {
	signal, err := hotkey.New(cfg.Hotkey)
	if err != nil {
		return nil, err
	}

	typer, err := newTyper(cfg.OutputMode)
	if err != nil {
		return nil, fmt.Errorf("init output: %w", err)
	}

	pa, err := hostaudio.New()
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "murmur-*")
	if err != nil {
		_ = pa.Close()
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	session := audiocapture.NewSession(pa, dir)

	whisper := stt.NewWhisperAPI(stt.WhisperAPIConfig{
		APIKey:   cfg.OpenAIAPIKey,
		BaseURL:  cfg.BaseURL,
		Language: cfg.Language,
		Timeout:  time.Duration(cfg.RequestTimeout) * time.Second,
	})

	controller := NewController(Options{
		Pacing:        cfg.Pacing(),
		OrderedOutput: cfg.OrderedOutput,
		Notifier:      notify.New(cfg.Notifications),
	}, signal, session, whisper, typer)

	slog.Info("service initialized", "hotkey", cfg.Hotkey, "output", cfg.OutputMode,
		"language", cfg.Language, "temp_dir", dir)

	return &Service{
		cfg:        cfg,
		audio:      pa,
		session:    session,
		signal:     signal,
		controller: controller,
	}, nil
}

// Run listens for the hotkey until ctx is done, then waits
// for in-flight transcriptions and releases every resource.
func (s *Service) Run(ctx context.Context) error {
	if err := s.signal.Start(); err != nil {
		s.release()
		return err
	}
	slog.Info("hold hotkey to dictate", "hotkey", s.cfg.Hotkey)

	err := s.controller.Run(ctx)
	s.shutdown()
	return err
}

func (s *Service) shutdown() {
	s.signal.Stop()
	slog.Info("waiting for pending transcriptions")
	s.controller.Wait()
	s.release()
}

func (s *Service) release() {
	if err := s.session.Close(); err != nil {
		slog.Error("close capture session", "error", err)
	}
	if err := s.audio.Close(); err != nil {
		slog.Error("terminate audio", "error", err)
	}
}

func newTyper(mode string) (Typer, error) {
	switch mode {
	case types.OutputModePaste:
		p, err := clipboard.NewPaster()
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		em, err := keystroke.NewEmitter()
		if err != nil {
			return nil, err
		}
		return keystroke.New(em), nil
	}
}
