package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/auricle/pkg/asr"
	"github.com/MrWong99/auricle/pkg/asr/mock"
	"github.com/MrWong99/auricle/pkg/audio"
)

func guardWAV() []byte {
	return audio.EncodeWAV(make([]float32, 160), 16000)
}

func TestGuardedBackend_ForwardsSuccess(t *testing.T) {
	backend := &mock.Backend{Responses: []mock.Response{{Text: "hello"}}}
	g := NewGuardedBackend(backend, CircuitBreakerConfig{MaxFailures: 2})

	text, err := g.Transcribe(context.Background(), guardWAV())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello" {
		t.Fatalf("text = %q, want %q", text, "hello")
	}
}

func TestGuardedBackend_OpensAfterConsecutiveFailures(t *testing.T) {
	backend := &mock.Backend{Responses: []mock.Response{
		{Err: asr.ErrBackendUnavailable},
		{Err: asr.ErrBackendUnavailable},
		{Text: "never reached"},
	}}
	g := NewGuardedBackend(backend, CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := g.Transcribe(ctx, guardWAV()); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if g.State() != StateOpen {
		t.Fatalf("state = %v, want open", g.State())
	}

	// Open breaker fails fast without touching the backend.
	_, err := g.Transcribe(ctx, guardWAV())
	if !errors.Is(err, asr.ErrBackendUnavailable) {
		t.Fatalf("error = %v, want ErrBackendUnavailable", err)
	}
	if got := len(backend.Calls()); got != 2 {
		t.Fatalf("backend calls = %d, want 2 (third call must be rejected)", got)
	}
}

func TestGuardedBackend_CancellationDoesNotTripBreaker(t *testing.T) {
	backend := &mock.Backend{Responses: []mock.Response{
		{Text: "slow", Delay: time.Hour},
	}}
	g := NewGuardedBackend(backend, CircuitBreakerConfig{MaxFailures: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.Transcribe(ctx, guardWAV()); err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled or nil result", err)
	}
	if g.State() != StateClosed {
		t.Fatalf("state = %v, want closed after cancellation", g.State())
	}
}

func TestGuardedBackend_Ready_OpenBreakerFailsFast(t *testing.T) {
	backend := &mock.Backend{Responses: []mock.Response{
		{Err: asr.ErrBackendUnavailable},
	}}
	g := NewGuardedBackend(backend, CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Hour,
	})

	_, _ = g.Transcribe(context.Background(), guardWAV())
	if g.State() != StateOpen {
		t.Fatal("expected open breaker")
	}
	if err := g.Ready(context.Background()); !errors.Is(err, asr.ErrBackendUnavailable) {
		t.Fatalf("Ready error = %v, want ErrBackendUnavailable", err)
	}
}

func TestGuardedBackend_ResetBreaker(t *testing.T) {
	backend := &mock.Backend{Responses: []mock.Response{
		{Err: asr.ErrBackendUnavailable},
		{Text: "recovered"},
	}}
	g := NewGuardedBackend(backend, CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Hour,
	})

	_, _ = g.Transcribe(context.Background(), guardWAV())
	if g.State() != StateOpen {
		t.Fatal("expected open breaker")
	}

	g.ResetBreaker()
	text, err := g.Transcribe(context.Background(), guardWAV())
	if err != nil {
		t.Fatalf("Transcribe after reset: %v", err)
	}
	if text != "recovered" {
		t.Fatalf("text = %q, want %q", text, "recovered")
	}
}
