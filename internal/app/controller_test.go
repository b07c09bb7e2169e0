package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.aimuz.me/murmur/hotkey"
	"go.aimuz.me/murmur/internal/types"
	"go.aimuz.me/murmur/stt"
)

// fakeSignal is a hand-fed edge queue.
type fakeSignal struct {
	mu    sync.Mutex
	queue []hotkey.Event
}

func (s *fakeSignal) push(edges ...hotkey.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range edges {
		s.queue = append(s.queue, hotkey.Event{Edge: e, Binding: "F7", At: time.Now()})
	}
}

func (s *fakeSignal) Poll() (hotkey.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return hotkey.Event{}, false
	}
	ev := s.queue[0]
	s.queue = s.queue[1:]
	return ev, true
}

// fakeRecorder writes a small file per recording.
type fakeRecorder struct {
	dir      string
	startErr error
	stopErr  error

	mu      sync.Mutex
	active  bool
	current string
	starts  int
	stops   int
	n       int
}

func (r *fakeRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	if r.active {
		return nil
	}
	r.n++
	r.current = filepath.Join(r.dir, fmt.Sprintf("RecordTemp_%d.wav", r.n))
	if err := os.WriteFile(r.current, []byte("RIFF"), 0600); err != nil {
		return err
	}
	r.active = true
	r.starts++
	return nil
}

func (r *fakeRecorder) Stop() (*types.Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return nil, nil
	}
	r.active = false
	r.stops++
	if r.stopErr != nil {
		_ = os.Remove(r.current)
		return nil, r.stopErr
	}
	return &types.Artifact{Path: r.current, Channels: 1, SampleRate: 16000, BitDepth: 16}, nil
}

func (r *fakeRecorder) counts() (starts, stops int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts, r.stops
}

// fakeTranscriber returns "text for <file>" unless a hook overrides it.
type fakeTranscriber struct {
	hook func(art types.Artifact) (string, error)

	mu    sync.Mutex
	calls []string
	// existed records whether the artifact was on disk when transcription began.
	existed []bool
}

func (f *fakeTranscriber) Transcribe(_ context.Context, art types.Artifact) (string, error) {
	_, statErr := os.Stat(art.Path)
	f.mu.Lock()
	f.calls = append(f.calls, art.Path)
	f.existed = append(f.existed, statErr == nil)
	f.mu.Unlock()

	if f.hook != nil {
		return f.hook(art)
	}
	return "text for " + filepath.Base(art.Path), nil
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeTyper struct {
	err error

	mu     sync.Mutex
	texts  []string
	pacing []types.Pacing
}

func (f *fakeTyper) TypeText(text string, p types.Pacing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	f.pacing = append(f.pacing, p)
	return f.err
}

func (f *fakeTyper) typed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *fakeNotifier) Notify(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

type harness struct {
	signal   *fakeSignal
	rec      *fakeRecorder
	stt      *fakeTranscriber
	typer    *fakeTyper
	notifier *fakeNotifier
	c        *Controller
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		signal:   &fakeSignal{},
		rec:      &fakeRecorder{dir: t.TempDir()},
		stt:      &fakeTranscriber{},
		typer:    &fakeTyper{},
		notifier: &fakeNotifier{},
	}
	if opts.Tick == 0 {
		opts.Tick = time.Millisecond
	}
	opts.Notifier = h.notifier
	h.c = NewController(opts, h.signal, h.rec, h.stt, h.typer)
	return h
}

// run starts the control loop and returns a func that stops it and waits
// for in-flight units.
func (h *harness) run(t *testing.T) func() {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- h.c.Run(context.Background()) }()
	return func() {
		h.c.Exit()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after Exit")
		}
		h.c.Wait()
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func recordingsLeft(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	return len(entries)
}

func TestStateFollowsEdges(t *testing.T) {
	P, R := hotkey.Pressed, hotkey.Released
	tests := []struct {
		name       string
		edges      []hotkey.Edge
		want       []State
		wantStarts int
		wantStops  int
	}{
		{"press release", []hotkey.Edge{P, R}, []State{Armed, Idle}, 1, 1},
		{"release while idle", []hotkey.Edge{R, P, R}, []State{Idle, Armed, Idle}, 1, 1},
		{"repeated press ignored", []hotkey.Edge{P, P, P, R}, []State{Armed, Armed, Armed, Idle}, 1, 1},
		{"two cycles", []hotkey.Edge{P, R, P, R}, []State{Armed, Idle, Armed, Idle}, 2, 2},
		{"double release", []hotkey.Edge{P, R, R}, []State{Armed, Idle, Idle}, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{})
			ctx := context.Background()

			for i, e := range tt.edges {
				h.c.handle(ctx, hotkey.Event{Edge: e})
				if got := h.c.State(); got != tt.want[i] {
					t.Fatalf("after edge %d (%v): state = %v, want %v", i, e, got, tt.want[i])
				}
			}
			h.c.Wait()

			starts, stops := h.rec.counts()
			if starts != tt.wantStarts || stops != tt.wantStops {
				t.Errorf("starts=%d stops=%d, want %d/%d", starts, stops, tt.wantStarts, tt.wantStops)
			}
			if got := h.stt.callCount(); got != tt.wantStops {
				t.Errorf("transcriptions = %d, want %d", got, tt.wantStops)
			}
		})
	}
}

func TestStartFailureStaysIdle(t *testing.T) {
	h := newHarness(t, Options{})
	h.rec.startErr = errors.New("no input device available")

	h.c.handle(context.Background(), hotkey.Event{Edge: hotkey.Pressed})
	if got := h.c.State(); got != Idle {
		t.Fatalf("state = %v, want idle", got)
	}
	if h.notifier.count() != 1 {
		t.Errorf("notifications = %d, want 1", h.notifier.count())
	}

	// The user can retry once the device is back.
	h.rec.mu.Lock()
	h.rec.startErr = nil
	h.rec.mu.Unlock()
	h.c.handle(context.Background(), hotkey.Event{Edge: hotkey.Pressed})
	if got := h.c.State(); got != Armed {
		t.Fatalf("state after retry = %v, want armed", got)
	}
}

func TestStopFailureReturnsToIdle(t *testing.T) {
	h := newHarness(t, Options{})
	h.rec.stopErr = errors.New("disk full")
	ctx := context.Background()

	h.c.handle(ctx, hotkey.Event{Edge: hotkey.Pressed})
	h.c.handle(ctx, hotkey.Event{Edge: hotkey.Released})
	h.c.Wait()

	if got := h.c.State(); got != Idle {
		t.Errorf("state = %v, want idle", got)
	}
	if h.stt.callCount() != 0 {
		t.Error("nothing should be transcribed without an artifact")
	}
	h.notifier.mu.Lock()
	defer h.notifier.mu.Unlock()
	if len(h.notifier.msgs) != 1 || !strings.HasPrefix(h.notifier.msgs[0], "Could not finish recording") {
		t.Errorf("notifications = %q, want one stop failure", h.notifier.msgs)
	}
}

func TestRapidPairsYieldDistinctArtifacts(t *testing.T) {
	pacing := types.Pacing{WordDelay: 5 * time.Millisecond, KeyEventDelay: time.Millisecond}
	h := newHarness(t, Options{Pacing: pacing})
	stop := h.run(t)

	h.signal.push(hotkey.Pressed, hotkey.Released, hotkey.Pressed, hotkey.Released)
	waitFor(t, "two outputs", func() bool { return len(h.typer.typed()) == 2 })
	stop()

	h.stt.mu.Lock()
	calls := append([]string(nil), h.stt.calls...)
	existed := append([]bool(nil), h.stt.existed...)
	h.stt.mu.Unlock()

	if len(calls) != 2 {
		t.Fatalf("transcriptions = %d, want 2", len(calls))
	}
	if calls[0] == calls[1] {
		t.Errorf("both transcriptions used %s", calls[0])
	}
	for i, ok := range existed {
		if !ok {
			t.Errorf("artifact %d was missing when transcription started", i)
		}
	}
	if n := recordingsLeft(t, h.rec.dir); n != 0 {
		t.Errorf("%d artifacts left on disk", n)
	}

	h.typer.mu.Lock()
	defer h.typer.mu.Unlock()
	for _, p := range h.typer.pacing {
		if p != pacing {
			t.Errorf("pacing = %+v, want %+v", p, pacing)
		}
	}
}

func TestTranscriptionErrorsDeleteArtifact(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"remote", &stt.RemoteError{Status: 500, Body: "boom"}},
		{"transport", &stt.TransportError{Op: "transcribe", Err: errors.New("connection reset")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{})
			h.stt.hook = func(types.Artifact) (string, error) { return "", tt.err }
			stop := h.run(t)

			h.signal.push(hotkey.Pressed, hotkey.Released)
			waitFor(t, "transcription", func() bool { return h.stt.callCount() == 1 })
			stop()

			if got := h.typer.typed(); len(got) != 0 {
				t.Errorf("typed %q after failed transcription", got)
			}
			if n := recordingsLeft(t, h.rec.dir); n != 0 {
				t.Errorf("%d artifacts left on disk", n)
			}
			if h.notifier.count() != 1 {
				t.Errorf("notifications = %d, want 1", h.notifier.count())
			}
			if h.stt.callCount() != 1 {
				t.Errorf("transcriptions = %d, failures must not be retried", h.stt.callCount())
			}
		})
	}
}

func TestTyperErrorIsNotFatal(t *testing.T) {
	h := newHarness(t, Options{})
	h.typer.err = errors.New("input blocked")
	stop := h.run(t)

	h.signal.push(hotkey.Pressed, hotkey.Released, hotkey.Pressed, hotkey.Released)
	waitFor(t, "two outputs", func() bool { return len(h.typer.typed()) == 2 })
	stop()

	if n := recordingsLeft(t, h.rec.dir); n != 0 {
		t.Errorf("%d artifacts left on disk", n)
	}
}

func TestLateResultDiscardedAfterStop(t *testing.T) {
	h := newHarness(t, Options{})
	release := make(chan struct{})
	started := make(chan struct{})
	h.stt.hook = func(types.Artifact) (string, error) {
		close(started)
		<-release
		return "too late", nil
	}

	done := make(chan error, 1)
	go func() { done <- h.c.Run(context.Background()) }()

	h.signal.push(hotkey.Pressed, hotkey.Released)
	<-started

	h.c.Exit()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := h.c.State(); got != Stopped {
		t.Fatalf("state = %v, want stopped", got)
	}

	close(release)
	h.c.Wait()

	if got := h.typer.typed(); len(got) != 0 {
		t.Errorf("typed %q after shutdown", got)
	}
	if n := recordingsLeft(t, h.rec.dir); n != 0 {
		t.Errorf("%d artifacts left on disk", n)
	}
}

func TestCancelWhileArmedDiscardsRecording(t *testing.T) {
	h := newHarness(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.c.Run(ctx) }()

	h.signal.push(hotkey.Pressed)
	waitFor(t, "armed", func() bool { return h.c.State() == Armed })

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	h.c.Wait()

	if got := h.c.State(); got != Stopped {
		t.Errorf("state = %v, want stopped", got)
	}
	if _, stops := h.rec.counts(); stops != 1 {
		t.Errorf("stops = %d, want 1", stops)
	}
	if h.stt.callCount() != 0 {
		t.Error("recording discarded on shutdown must not be transcribed")
	}
	if n := recordingsLeft(t, h.rec.dir); n != 0 {
		t.Errorf("%d artifacts left on disk", n)
	}

	// Edges after Stopped are ignored.
	h.c.handle(ctx, hotkey.Event{Edge: hotkey.Pressed})
	if starts, _ := h.rec.counts(); starts != 1 {
		t.Errorf("starts = %d after stop, want 1", starts)
	}
}

func TestExitIsIdempotent(t *testing.T) {
	h := newHarness(t, Options{})
	stop := h.run(t)
	h.c.Exit()
	stop()
	if got := h.c.State(); got != Stopped {
		t.Errorf("state = %v, want stopped", got)
	}
}

func TestOutputOrdering(t *testing.T) {
	tests := []struct {
		name    string
		ordered bool
		want    []string
	}{
		// The first recording is slower to transcribe than the second.
		{"unordered types as results arrive", false, []string{"second", "first"}},
		{"ordered types in recording order", true, []string{"first", "second"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{OrderedOutput: tt.ordered})
			releaseFirst := make(chan struct{})
			secondDone := make(chan struct{})
			h.stt.hook = func(art types.Artifact) (string, error) {
				if filepath.Base(art.Path) == "RecordTemp_1.wav" {
					<-releaseFirst
					return "first", nil
				}
				defer close(secondDone)
				return "second", nil
			}
			stop := h.run(t)

			h.signal.push(hotkey.Pressed, hotkey.Released, hotkey.Pressed, hotkey.Released)
			<-secondDone
			if !tt.ordered {
				waitFor(t, "second output", func() bool { return len(h.typer.typed()) == 1 })
			} else {
				// The second result must wait for the first.
				time.Sleep(20 * time.Millisecond)
				if got := h.typer.typed(); len(got) != 0 {
					t.Fatalf("typed %q before the first recording finished", got)
				}
			}
			close(releaseFirst)
			waitFor(t, "both outputs", func() bool { return len(h.typer.typed()) == 2 })
			stop()

			got := h.typer.typed()
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("typed %q, want %q", got, tt.want)
				}
			}
		})
	}
}

func TestSequencer(t *testing.T) {
	s := newSequencer()
	var (
		mu    sync.Mutex
		order []uint64
		wg    sync.WaitGroup
	)
	for _, n := range []uint64{3, 1, 2} {
		wg.Add(1)
		go func(n uint64) {
			defer wg.Done()
			s.wait(n)
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			s.done(n)
		}(n)
	}
	wg.Wait()

	for i, n := range order {
		if n != uint64(i+1) {
			t.Fatalf("order = %v, want [1 2 3]", order)
		}
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{Idle: "idle", Armed: "armed", Stopped: "stopped", State(7): "State(7)"}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(s), got, want)
		}
	}
}
