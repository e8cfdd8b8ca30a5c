// Package asr defines the Backend interface for speech transcription engines.
//
// A backend exposes exactly one operation: turn a self-describing WAV buffer
// into text. Whether that is realized as an HTTP round-trip to a
// whisper-server process ([Server]) or an in-process whisper.cpp call
// ([Native]) is invisible to callers — the dispatcher depends only on this
// signature and the three failure modes below.
//
// Implementations must be safe for concurrent use, although the dispatcher
// guarantees at most one Transcribe call is in flight at a time.
package asr

import (
	"context"
	"errors"
	"fmt"
)

// ErrBackendUnavailable indicates the backend has not signaled readiness or
// cannot be reached. Recoverable: later jobs may succeed once the backend
// comes up.
var ErrBackendUnavailable = errors.New("asr: backend unavailable")

// ErrTimeout indicates the backend produced no response within the bounded
// interval. The job is dropped; the transcript is unaffected.
var ErrTimeout = errors.New("asr: transcription timed out")

// BackendError is returned when the backend responded with a failure (e.g. a
// non-2xx HTTP status or an engine-level error).
type BackendError struct {
	// Status is the HTTP status code, or 0 for non-HTTP backends.
	Status int

	// Msg describes the failure.
	Msg string
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("asr: backend returned HTTP %d: %s", e.Status, e.Msg)
	}
	return "asr: backend error: " + e.Msg
}

// Backend is the abstraction over any transcription engine.
type Backend interface {
	// Transcribe converts a 16-bit mono PCM WAV buffer into text. It blocks
	// until the backend responds, the bounded timeout elapses, or ctx is
	// cancelled. Failure modes: [ErrBackendUnavailable], [ErrTimeout], or a
	// [*BackendError]; all are surfaced as typed results, never panics.
	Transcribe(ctx context.Context, wav []byte) (string, error)

	// Ready reports whether the backend is able to accept requests. A nil
	// return means ready; otherwise the error describes why not (wrapped
	// around [ErrBackendUnavailable] when the backend is unreachable).
	Ready(ctx context.Context) error
}
