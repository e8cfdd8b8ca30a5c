// Package server exposes the diagnostics HTTP surface: Prometheus metrics,
// health probes, and a WebSocket event stream carrying transcript updates.
//
// The event stream exists for overlay UIs and debugging; it is strictly an
// observer. Slow or stuck subscribers are disconnected rather than ever
// back-pressuring the pipeline.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/auricle/internal/health"
	"github.com/MrWong99/auricle/internal/observe"
)

const (
	// subscriberBuffer is the number of events a subscriber may fall behind
	// before it is dropped.
	subscriberBuffer = 16

	// writeTimeout bounds a single WebSocket write.
	writeTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second
)

// Event is one message on the /events stream.
type Event struct {
	// Type is "transcript" or "segment".
	Type string `json:"type"`

	// Text is the full transcript (type "transcript").
	Text string `json:"text,omitempty"`

	// Bytes is the encoded segment size (type "segment").
	Bytes int `json:"bytes,omitempty"`
}

// Option is a functional option for configuring a [Server].
type Option func(*Server)

// WithMetrics replaces the metrics sink. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// Server is the diagnostics HTTP server. Construct with [New], publish
// pipeline events via [PublishTranscript] and [PublishSegment], and drive the
// lifecycle with [Run].
type Server struct {
	httpServer *http.Server
	metrics    *observe.Metrics

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// New creates a Server listening on addr once [Run] is called. The health
// handler's routes are mounted next to /metrics and /events.
func New(addr string, healthHandler *health.Handler, opts ...Option) *Server {
	s := &Server{
		subs: make(map[chan Event]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /events", s.handleEvents)
	healthHandler.Register(mux)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// PublishTranscript pushes a transcript update to all subscribers.
func (s *Server) PublishTranscript(text string) {
	s.publish(Event{Type: "transcript", Text: text})
}

// PublishSegment announces an emitted segment by its encoded size.
func (s *Server) PublishSegment(size int) {
	s.publish(Event{Type: "segment", Bytes: size})
}

// publish fans the event out without blocking. A subscriber whose buffer is
// full gets its channel closed, which terminates its connection handler.
func (s *Server) publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			delete(s.subs, ch)
			close(ch)
			slog.Warn("event subscriber dropped: too slow")
		}
	}
}

// subscribe registers a new event channel.
func (s *Server) subscribe() chan Event {
	ch := make(chan Event, subscriberBuffer)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	s.metrics.EventSubscribers.Add(context.Background(), 1)
	return ch
}

// unsubscribe removes ch if it is still registered. Safe to call after the
// publisher already dropped it.
func (s *Server) unsubscribe(ch chan Event) {
	s.mu.Lock()
	_, registered := s.subs[ch]
	if registered {
		delete(s.subs, ch)
	}
	s.mu.Unlock()
	if registered {
		close(ch)
	}
	s.metrics.EventSubscribers.Add(context.Background(), -1)
}

// handleEvents upgrades the request to a WebSocket and streams events until
// the client disconnects or falls behind.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("event stream upgrade failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
			return
		case ev, ok := <-ch:
			if !ok {
				// Dropped by the publisher.
				conn.Close(websocket.StatusPolicyViolation, "subscriber too slow")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, ev)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
