package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"go.aimuz.me/murmur/internal/types"
	"go.aimuz.me/murmur/stt"
)

// process transcribes one artifact and types the result. The artifact is
// deleted exactly once, whatever happens.
func (c *Controller) process(ctx context.Context, seq uint64, art types.Artifact) {
	defer c.inflight.Done()
	defer removeArtifact(art.Path)

	text, err := c.stt.Transcribe(ctx, art)

	if c.seq != nil {
		c.seq.wait(seq)
		defer c.seq.done(seq)
	}

	if err != nil {
		logTranscribeError(art, err)
		c.notify(msgTranscribeFailed, err)
		return
	}

	if c.State() == Stopped {
		slog.Info("discarded transcription after shutdown", "path", art.Path, "chars", len(text))
		return
	}
	if text == "" {
		slog.Info("empty transcription", "path", art.Path, "duration", art.Duration())
	}

	c.deliver(types.OutputJob{Text: text, Pacing: c.pacing})
}

// deliver hands one job to the typer. Typers serialize concurrent jobs.
func (c *Controller) deliver(job types.OutputJob) {
	if err := c.typer.TypeText(job.Text, job.Pacing); err != nil {
		slog.Error("type transcription", "error", err, "chars", len(job.Text))
		c.notify(msgOutputFailed, err)
	}
}

func logTranscribeError(art types.Artifact, err error) {
	var remote *stt.RemoteError
	if errors.As(err, &remote) {
		slog.Error("transcription rejected", "status", remote.Status, "body", remote.Body, "path", art.Path)
		return
	}
	slog.Error("transcribe", "error", err, "path", art.Path)
}

func removeArtifact(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("remove recording", "path", path, "error", err)
	}
}

// sequencer lets units take turns in the order their recordings finished.
type sequencer struct {
	mu   sync.Mutex
	cond *sync.Cond
	next uint64
}

func newSequencer() *sequencer {
	s := &sequencer{next: 1}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// wait blocks until n is the next sequence number to run.
func (s *sequencer) wait(n uint64) {
	s.mu.Lock()
	for s.next != n {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// done hands the turn to n+1.
func (s *sequencer) done(n uint64) {
	s.mu.Lock()
	s.next = n + 1
	s.cond.Broadcast()
	s.mu.Unlock()
}
