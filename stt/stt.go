// Package stt provides speech-to-text transcription of recorded artifacts.
package stt

import (
	"context"
	"fmt"

	"go.aimuz.me/murmur/internal/types"
)

// Transcriber converts a finished recording to text.
// Implementations never retry and never delete the artifact.
type Transcriber interface {
	Transcribe(ctx context.Context, art types.Artifact) (string, error)
}

// RemoteError is a non-success response from the transcription service.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Body)
}

// TransportError is any failure to obtain a response: reading the artifact,
// connecting, timing out or decoding the reply.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
