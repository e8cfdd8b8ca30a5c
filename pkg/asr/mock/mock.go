// Package mock provides a test double for the asr package's Backend
// interface.
//
// Use Backend to script transcription results and inspect the WAV buffers
// that were submitted:
//
//	b := &mock.Backend{Responses: []mock.Response{{Text: "hello"}}}
//	text, err := b.Transcribe(ctx, wav)
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/auricle/pkg/asr"
)

// Response scripts the outcome of a single Transcribe call.
type Response struct {
	// Text is returned when Err is nil.
	Text string

	// Err, if non-nil, is returned instead of Text.
	Err error

	// Delay is how long Transcribe blocks before returning. Respects
	// context cancellation.
	Delay time.Duration
}

// TranscribeCall records a single invocation of Backend.Transcribe.
type TranscribeCall struct {
	// WAV is a copy of the buffer passed to Transcribe.
	WAV []byte
}

// Backend is a mock implementation of asr.Backend. Responses are consumed in
// order; once exhausted, Transcribe returns the zero Response ("" text, nil
// error). Safe for concurrent use.
type Backend struct {
	mu sync.Mutex

	// Responses scripts successive Transcribe outcomes.
	Responses []Response

	// ReadyErr, if non-nil, is returned from Ready.
	ReadyErr error

	// TranscribeCalls records every call to Transcribe.
	TranscribeCalls []TranscribeCall

	next int
}

// Compile-time assertion that Backend satisfies asr.Backend.
var _ asr.Backend = (*Backend)(nil)

// Transcribe records the call and returns the next scripted Response.
func (b *Backend) Transcribe(ctx context.Context, wav []byte) (string, error) {
	b.mu.Lock()
	cp := make([]byte, len(wav))
	copy(cp, wav)
	b.TranscribeCalls = append(b.TranscribeCalls, TranscribeCall{WAV: cp})

	var resp Response
	if b.next < len(b.Responses) {
		resp = b.Responses[b.next]
		b.next++
	}
	b.mu.Unlock()

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if resp.Err != nil {
		return "", resp.Err
	}
	return resp.Text, nil
}

// Ready returns ReadyErr.
func (b *Backend) Ready(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ReadyErr
}

// Calls returns a snapshot of the recorded Transcribe calls.
func (b *Backend) Calls() []TranscribeCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]TranscribeCall, len(b.TranscribeCalls))
	copy(out, b.TranscribeCalls)
	return out
}

// Reset clears recorded calls and rewinds the response script.
func (b *Backend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.TranscribeCalls = nil
	b.next = 0
}
