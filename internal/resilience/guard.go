package resilience

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/auricle/pkg/asr"
)

// GuardedBackend wraps an [asr.Backend] with a [CircuitBreaker]. While the
// breaker is open, Transcribe and Ready fail fast with
// [asr.ErrBackendUnavailable] instead of hitting the backend. Failed jobs
// count toward opening the breaker; context cancellation does not, since it
// says nothing about backend health.
type GuardedBackend struct {
	backend asr.Backend
	breaker *CircuitBreaker
}

// Compile-time interface assertion.
var _ asr.Backend = (*GuardedBackend)(nil)

// NewGuardedBackend wraps backend with a circuit breaker built from cfg.
// cfg.Name defaults to "asr-backend".
func NewGuardedBackend(backend asr.Backend, cfg CircuitBreakerConfig) *GuardedBackend {
	if cfg.Name == "" {
		cfg.Name = "asr-backend"
	}
	return &GuardedBackend{
		backend: backend,
		breaker: NewCircuitBreaker(cfg),
	}
}

// Transcribe forwards to the wrapped backend when the breaker allows it.
// An open breaker surfaces as [asr.ErrBackendUnavailable] so callers see the
// same failure mode as an unreachable backend.
func (g *GuardedBackend) Transcribe(ctx context.Context, wav []byte) (string, error) {
	var (
		text string
		terr error
	)
	err := g.breaker.Execute(func() error {
		text, terr = g.backend.Transcribe(ctx, wav)
		if terr != nil && ctx.Err() != nil {
			// Caller gave up; don't punish the backend for it.
			return nil
		}
		return terr
	})
	if errors.Is(err, ErrCircuitOpen) {
		return "", fmt.Errorf("%w: circuit open", asr.ErrBackendUnavailable)
	}
	if terr != nil {
		return "", terr
	}
	return text, nil
}

// Ready probes the wrapped backend. While the breaker is open the probe is
// skipped and the call fails fast.
func (g *GuardedBackend) Ready(ctx context.Context) error {
	if g.breaker.State() == StateOpen {
		return fmt.Errorf("%w: circuit open", asr.ErrBackendUnavailable)
	}
	return g.backend.Ready(ctx)
}

// State exposes the breaker state for health reporting.
func (g *GuardedBackend) State() State {
	return g.breaker.State()
}

// ResetBreaker forces the breaker back to the closed state.
func (g *GuardedBackend) ResetBreaker() {
	g.breaker.Reset()
}
