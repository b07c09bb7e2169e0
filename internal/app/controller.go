package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.aimuz.me/murmur/hotkey"
	"go.aimuz.me/murmur/internal/types"
	"go.aimuz.me/murmur/stt"
)

// DefaultTick is how often the control loop polls for edges and exit.
const DefaultTick = 10 * time.Millisecond

// EdgeSource yields hotkey edges without blocking.
type EdgeSource interface {
	Poll() (hotkey.Event, bool)
}

// Recorder captures one utterance at a time.
type Recorder interface {
	Start() error
	Stop() (*types.Artifact, error)
}

// Typer delivers recognized text to the focused application.
type Typer interface {
	TypeText(text string, p types.Pacing) error
}

// Notifier tells the user about failures.
type Notifier interface {
	Notify(message string)
}

// Options are read once when the controller is built.
type Options struct {
	Pacing        types.Pacing
	OrderedOutput bool          // type results in recording order
	Tick          time.Duration // defaults to DefaultTick
	Notifier      Notifier      // optional
}

// Controller drives record → transcribe → type from hotkey edges.
type Controller struct {
	signal EdgeSource
	rec    Recorder
	stt    stt.Transcriber
	typer  Typer

	pacing   types.Pacing
	tick     time.Duration
	notifier Notifier
	seq      *sequencer // nil unless ordered output is enabled

	mu      sync.Mutex
	state   State
	nextSeq uint64

	exit     chan struct{}
	exitOnce sync.Once
	inflight sync.WaitGroup
}

// NewController creates a controller in the Idle state.
func NewController(opts Options, signal EdgeSource, rec Recorder, transcriber stt.Transcriber, typer Typer) *Controller {
	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	c := &Controller{
		signal:   signal,
		rec:      rec,
		stt:      transcriber,
		typer:    typer,
		pacing:   opts.Pacing,
		tick:     tick,
		notifier: opts.Notifier,
		exit:     make(chan struct{}),
	}
	if opts.OrderedOutput {
		c.seq = newSequencer()
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Exit asks Run to shut down at its next tick. Safe to call more than once.
func (c *Controller) Exit() {
	c.exitOnce.Do(func() { close(c.exit) })
}

// Wait blocks until every in-flight transcription has finished and its
// artifact has been deleted.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// Run processes hotkey edges until ctx is done or Exit is called.
// It moves the controller to Stopped before returning.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	var ready <-chan struct{}
	if r, ok := c.signal.(interface{ Ready() <-chan struct{} }); ok {
		ready = r.Ready()
	}

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case <-c.exit:
			c.shutdown()
			return nil
		case <-ticker.C:
		case <-ready:
		}

		for {
			ev, ok := c.signal.Poll()
			if !ok {
				break
			}
			c.handle(ctx, ev)
		}
	}
}

// handle applies one edge to the state machine.
func (c *Controller) handle(ctx context.Context, ev hotkey.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Idle:
		if ev.Edge != hotkey.Pressed {
			return
		}
		if err := c.rec.Start(); err != nil {
			slog.Error("start recording", "error", err)
			c.notify(msgCaptureFailed, err)
			return
		}
		c.state = Armed
		slog.Debug("armed", "binding", ev.Binding)

	case Armed:
		if ev.Edge != hotkey.Released {
			return
		}
		art, err := c.rec.Stop()
		c.state = Idle
		if err != nil {
			slog.Error("stop recording", "error", err)
			c.notify(msgStopFailed, err)
			return
		}
		if art == nil {
			return
		}
		c.nextSeq++
		c.inflight.Add(1)
		go c.process(context.WithoutCancel(ctx), c.nextSeq, *art)

	case Stopped:
	}
}

// shutdown moves to Stopped, discarding any recording in progress.
func (c *Controller) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Stopped {
		return
	}
	prev := c.state
	c.state = Stopped
	slog.Info("controller stopped", "previous", prev)

	if prev != Armed {
		return
	}
	art, err := c.rec.Stop()
	if err != nil {
		slog.Warn("stop recording on shutdown", "error", err)
	}
	if art != nil {
		removeArtifact(art.Path)
		slog.Info("discarded recording on shutdown", "path", art.Path)
	}
}

func (c *Controller) notify(format string, err error) {
	if c.notifier != nil {
		c.notifier.Notify(fmt.Sprintf(format, err))
	}
}
