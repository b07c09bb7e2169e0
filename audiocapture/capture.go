// Package audiocapture records the default input device to WAV files.
package audiocapture

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"go.aimuz.me/murmur/internal/types"
)

const (
	// FilePrefix names every artifact written by a Session.
	FilePrefix = "RecordTemp_"

	// Warn when more than this fraction of delivered samples was dropped.
	dropWarnRatio = 0.01

	// Recordings below this RMS level are reported as silent.
	silenceRMS = 0.01
)

// Session owns at most one live input stream and the file it is written to.
// Start and Stop are called from the control goroutine; the device callback
// only touches the recording flag and the writer via TryLock.
type Session struct {
	backend Backend
	dir     string

	mu        sync.Mutex // serializes Start/Stop
	recording atomic.Bool
	rec       *recording
}

// recording is the state of one Start/Stop cycle.
type recording struct {
	stream    Stream
	file      *os.File
	path      string
	device    string
	channels  int
	rate      int
	startedAt time.Time

	delivered atomic.Int64
	dropped   atomic.Int64

	// Writer state, guarded by mu. The callback only ever TryLocks.
	mu       sync.Mutex
	enc      *wav.Encoder
	buf      *audio.IntBuffer
	frames   int64
	level    levelMeter
	writeErr error
}

// NewSession creates a Session writing artifacts into dir.
func NewSession(backend Backend, dir string) *Session {
	return &Session{backend: backend, dir: dir}
}

// IsRecording reports whether a recording is in progress.
func (s *Session) IsRecording() bool {
	return s.recording.Load()
}

// Start opens the default input device and begins writing to a new file.
// Calling Start while already recording is a no-op.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rec != nil {
		return nil
	}

	dev, err := s.backend.DefaultInput()
	if err != nil {
		if !errors.Is(err, ErrNoInputDevice) {
			err = fmt.Errorf("%w: %v", ErrNoInputDevice, err)
		}
		return err
	}
	if dev.Channels < 1 || dev.SampleRate <= 0 {
		return &StreamError{Device: dev.Name, Op: "open",
			Err: fmt.Errorf("unsupported format: %d channels at %.0f Hz", dev.Channels, dev.SampleRate)}
	}

	rec, err := s.newRecording(dev)
	if err != nil {
		return err
	}

	stream, err := s.backend.Open(dev, func(in []float32) { s.onSamples(rec, in) })
	if err != nil {
		rec.discard()
		return &StreamError{Device: dev.Name, Op: "open", Err: err}
	}
	rec.stream = stream

	// Raise the flag before the first callback can arrive.
	s.recording.Store(true)
	if err := stream.Start(); err != nil {
		s.recording.Store(false)
		if cerr := stream.Close(); cerr != nil {
			slog.Warn("close input stream", "error", cerr)
		}
		rec.discard()
		return &StreamError{Device: dev.Name, Op: "start", Err: err}
	}

	s.rec = rec
	slog.Info("recording started", "device", dev.Name, "channels", rec.channels,
		"sample_rate", rec.rate, "path", rec.path)
	return nil
}

// Stop halts the stream, waits for it to drain, closes the file and returns the artifact.
// It returns nil, nil when no recording is in progress.
func (s *Session) Stop() (*types.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.rec
	if rec == nil {
		return nil, nil
	}
	s.rec = nil
	s.recording.Store(false)

	// Stream.Stop joins the callback thread.
	if err := rec.stream.Stop(); err != nil {
		slog.Warn("stop input stream", "error", err)
	}
	if err := rec.stream.Close(); err != nil {
		slog.Warn("close input stream", "error", err)
	}

	rec.mu.Lock()
	err := rec.finalize()
	frames, rms := rec.frames, rec.level.rms()
	rec.mu.Unlock()

	if err != nil {
		if rerr := os.Remove(rec.path); rerr != nil && !os.IsNotExist(rerr) {
			slog.Warn("remove partial recording", "path", rec.path, "error", rerr)
		}
		return nil, fmt.Errorf("finalize recording: %w", err)
	}

	art := &types.Artifact{
		Path:       rec.path,
		Channels:   rec.channels,
		SampleRate: rec.rate,
		BitDepth:   bitDepth,
		Frames:     frames,
		StartedAt:  rec.startedAt,
	}

	rec.reportDrops()
	slog.Info("recording stopped", "path", art.Path, "duration", art.Duration(), "rms", rms)
	if rms < silenceRMS {
		slog.Info("recording is silent", "path", art.Path, "rms", rms)
	}
	return art, nil
}

// Close stops any active recording, deletes its file and removes the session directory.
func (s *Session) Close() error {
	art, err := s.Stop()
	if err != nil {
		slog.Warn("stop recording on close", "error", err)
	}
	if art != nil {
		if err := os.Remove(art.Path); err != nil && !os.IsNotExist(err) {
			slog.Warn("remove recording", "path", art.Path, "error", err)
		}
	}
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("remove session dir: %w", err)
	}
	return nil
}

// onSamples runs on the device thread. It must never block.
func (s *Session) onSamples(rec *recording, in []float32) {
	if !s.recording.Load() {
		return
	}
	rec.delivered.Add(int64(len(in)))

	if !rec.mu.TryLock() {
		rec.dropped.Add(int64(len(in)))
		return
	}
	defer rec.mu.Unlock()

	if rec.enc == nil || rec.writeErr != nil {
		return
	}

	rec.buf.Data = toPCM16(rec.buf.Data[:0], in)
	if err := rec.enc.Write(rec.buf); err != nil {
		rec.writeErr = err
		return
	}
	rec.frames += int64(len(in) / rec.channels)
	rec.level.add(in)
}

func (s *Session) newRecording(dev Device) (*recording, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	path := filepath.Join(s.dir, FilePrefix+id+".wav")

	// O_EXCL guarantees a path is never reused.
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, fmt.Errorf("create recording file: %w", err)
	}

	rec := &recording{
		file:      f,
		path:      path,
		device:    dev.Name,
		channels:  dev.Channels,
		rate:      int(dev.SampleRate),
		startedAt: time.Now(),
	}
	rec.enc = wav.NewEncoder(f, rec.rate, bitDepth, rec.channels, 1)
	rec.buf = &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: rec.channels, SampleRate: rec.rate},
		SourceBitDepth: bitDepth,
	}

	// Write the RIFF and data headers now so that a recording with no
	// samples still finalizes into a valid file.
	if err := rec.enc.Write(rec.buf); err != nil {
		rec.discard()
		return nil, fmt.Errorf("write wav header: %w", err)
	}
	return rec, nil
}

// finalize rewrites the WAV header and closes the file. Caller holds rec.mu.
func (r *recording) finalize() error {
	if r.enc == nil {
		return nil
	}
	encErr := r.enc.Close()
	r.enc = nil
	fileErr := r.file.Close()

	switch {
	case r.writeErr != nil:
		return fmt.Errorf("write samples: %w", r.writeErr)
	case encErr != nil:
		return fmt.Errorf("close wav encoder: %w", encErr)
	case fileErr != nil:
		return fmt.Errorf("close file: %w", fileErr)
	}
	return nil
}

// discard abandons a recording that never started.
func (r *recording) discard() {
	r.mu.Lock()
	r.enc = nil
	r.mu.Unlock()
	_ = r.file.Close()
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		slog.Warn("remove recording", "path", r.path, "error", err)
	}
}

func (r *recording) reportDrops() {
	dropped := r.dropped.Load()
	if dropped == 0 {
		return
	}
	delivered := r.delivered.Load()
	ratio := float64(dropped) / float64(delivered)
	if ratio > dropWarnRatio {
		slog.Warn("dropped samples during capture", "dropped", dropped, "delivered", delivered, "ratio", ratio)
		return
	}
	slog.Debug("dropped samples during capture", "dropped", dropped, "delivered", delivered)
}
