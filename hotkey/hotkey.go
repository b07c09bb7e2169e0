// Package hotkey turns a system-wide keyboard hook into press/release edges
// for a single configured key.
package hotkey

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	hook "github.com/robotn/gohook"
	"github.com/vcaesar/keycode"
)

var (
	ErrEmptyBinding = errors.New("empty key binding")
	ErrUnknownKey   = errors.New("unknown key")
	ErrChord        = errors.New("key combinations are not supported")

	ErrNoAccessibility = errors.New("accessibility permission not granted")
	ErrNoDisplay       = errors.New("no X display available")
	ErrHookTimeout     = errors.New("keyboard hook did not start")
)

// hookStartTimeout bounds the wait for the hook's enabled event.
const hookStartTimeout = 3 * time.Second

// BindingError means the hotkey could not be reserved. It is fatal at startup.
type BindingError struct {
	Binding string
	Err     error
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("bind hotkey %q: %v", e.Binding, e.Err)
}

func (e *BindingError) Unwrap() error { return e.Err }

// Edge is a key transition.
type Edge int

const (
	Pressed Edge = iota + 1
	Released
)

func (e Edge) String() string {
	switch e {
	case Pressed:
		return "pressed"
	case Released:
		return "released"
	}
	return fmt.Sprintf("Edge(%d)", int(e))
}

// Event is one edge of the bound key.
type Event struct {
	Edge    Edge
	Binding string
	At      time.Time
}

// Source delivers raw keyboard events.
type Source interface {
	Start() (<-chan hook.Event, error)
	Stop()
}

// Option configures a Signal.
type Option func(*Signal)

// WithSource replaces the global OS hook.
func WithSource(src Source) Option {
	return func(s *Signal) { s.source = src }
}

// Signal watches one key and queues its edges in order.
// Auto-repeat is collapsed: a key held down produces exactly one Pressed.
type Signal struct {
	binding string
	code    uint16
	source  Source

	mu    sync.Mutex
	queue []Event
	held  bool
	ready chan struct{}

	stop chan struct{}
	done chan struct{}
}

// New creates a Signal for a single key name such as "F7".
func New(binding string, opts ...Option) (*Signal, error) {
	code, err := ParseBinding(binding)
	if err != nil {
		return nil, err
	}

	s := &Signal{
		binding: binding,
		code:    code,
		source:  hookSource{check: platformCheck, timeout: hookStartTimeout},
		ready:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ParseBinding resolves a key name to its hook keycode.
func ParseBinding(binding string) (uint16, error) {
	key := strings.ToLower(strings.TrimSpace(binding))
	if key == "" {
		return 0, &BindingError{Binding: binding, Err: ErrEmptyBinding}
	}
	if len(key) > 1 && strings.Contains(key, "+") {
		return 0, &BindingError{Binding: binding, Err: ErrChord}
	}
	code, ok := keycode.Keycode[key]
	if !ok {
		return 0, &BindingError{Binding: binding, Err: ErrUnknownKey}
	}
	return code, nil
}

// Start attaches to the event source. Calling Start twice is a no-op.
func (s *Signal) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return nil
	}

	events, err := s.source.Start()
	if err != nil {
		return &BindingError{Binding: s.binding, Err: err}
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(events, s.stop, s.done)
	return nil
}

// Stop detaches from the event source and waits for the reader to exit.
func (s *Signal) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	s.source.Stop()
	<-done
}

// Poll returns the oldest queued edge without blocking.
func (s *Signal) Poll() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return Event{}, false
	}
	ev := s.queue[0]
	s.queue[0] = Event{}
	s.queue = s.queue[1:]
	return ev, true
}

// Ready is signalled after new edges are queued. It may fire spuriously.
func (s *Signal) Ready() <-chan struct{} {
	return s.ready
}

func (s *Signal) run(events <-chan hook.Event, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handle(ev)
		}
	}
}

// handle runs edge detection on one raw event.
func (s *Signal) handle(ev hook.Event) {
	if ev.Keycode != s.code {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var edge Edge
	switch ev.Kind {
	case hook.KeyHold, hook.KeyDown:
		if s.held {
			return
		}
		s.held = true
		edge = Pressed
	case hook.KeyUp:
		if !s.held {
			return
		}
		s.held = false
		edge = Released
	default:
		return
	}

	at := ev.When
	if at.IsZero() {
		at = time.Now()
	}
	s.queue = append(s.queue, Event{Edge: edge, Binding: s.binding, At: at})

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// hookSource is the process-wide gohook event stream.
// check runs before the hook is installed and reports missing platform access.
type hookSource struct {
	check   func() error
	timeout time.Duration
}

func (h hookSource) Start() (<-chan hook.Event, error) {
	if h.check != nil {
		if err := h.check(); err != nil {
			return nil, err
		}
	}
	events := hook.Start()
	if err := awaitEnabled(events, h.timeout); err != nil {
		hook.End()
		return nil, err
	}
	return events, nil
}

// awaitEnabled consumes events until the hook reports it is running.
// A hook that cannot attach never sends the enabled event.
func awaitEnabled(events <-chan hook.Event, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return ErrHookTimeout
			}
			if ev.Kind == hook.HookEnabled {
				return nil
			}
		case <-timer.C:
			return ErrHookTimeout
		}
	}
}

func (hookSource) Stop() {
	hook.End()
}
