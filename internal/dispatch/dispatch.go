// Package dispatch feeds encoded speech segments to a transcription backend,
// one request at a time.
//
// [Dispatcher] accepts jobs from the audio side without blocking and drains
// them with a single worker goroutine, so at most one backend request is ever
// in flight and results come back in submission order. Backend failures are
// delivered as typed results; they never abort queued jobs.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/auricle/internal/observe"
	"github.com/MrWong99/auricle/pkg/asr"
)

const (
	// DefaultQueueSize is the number of jobs that may wait behind the
	// in-flight request before Submit starts rejecting.
	DefaultQueueSize = 8

	// DefaultJobTimeout bounds a single backend request.
	DefaultJobTimeout = 30 * time.Second
)

// ErrClosed is returned by [Dispatcher.Submit] after [Dispatcher.Close].
var ErrClosed = errors.New("dispatch: dispatcher closed")

// ErrQueueFull is returned by [Dispatcher.Submit] when the job queue is at
// capacity. The caller decides what to do with the segment; the pipeline
// drops it.
var ErrQueueFull = errors.New("dispatch: job queue full")

// Job is one encoded segment awaiting transcription.
type Job struct {
	// Seq is the monotonically increasing sequence id assigned at segment
	// emission.
	Seq uint64

	// WAV is the encoded segment buffer.
	WAV []byte

	// Duration is the audio length of the segment, carried for logging and
	// metrics.
	Duration time.Duration
}

// Result is the terminal outcome of one [Job].
type Result struct {
	Seq  uint64
	Text string

	// Err is nil on success; otherwise one of the asr failure modes
	// ([asr.ErrBackendUnavailable], [asr.ErrTimeout], [*asr.BackendError])
	// or a context error.
	Err error
}

// Option is a functional option for configuring a [Dispatcher].
type Option func(*Dispatcher)

// WithQueueSize overrides the job queue capacity. Values below 1 keep the
// default.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n >= 1 {
			d.queueSize = n
		}
	}
}

// WithJobTimeout overrides the per-job backend timeout.
func WithJobTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithMetrics replaces the metrics sink. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// Dispatcher serialises transcription requests. Construct with [New], start
// the worker with [Run], feed it via [Submit], and consume [Results].
type Dispatcher struct {
	backend   asr.Backend
	timeout   time.Duration
	queueSize int
	metrics   *observe.Metrics

	jobs    chan Job
	results chan Result

	mu     sync.Mutex
	closed bool
}

// New creates a Dispatcher for the given backend. The worker does not start
// until [Dispatcher.Run] is called.
func New(backend asr.Backend, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		backend:   backend,
		timeout:   DefaultJobTimeout,
		queueSize: DefaultQueueSize,
	}
	for _, o := range opts {
		o(d)
	}
	if d.metrics == nil {
		d.metrics = observe.DefaultMetrics()
	}
	d.jobs = make(chan Job, d.queueSize)
	d.results = make(chan Result, d.queueSize)
	return d
}

// Submit enqueues a job without blocking. It returns [ErrQueueFull] when the
// queue is at capacity and [ErrClosed] after Close.
func (d *Dispatcher) Submit(job Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.jobs <- job:
		d.metrics.QueueDepth.Add(context.Background(), 1)
		return nil
	default:
		return ErrQueueFull
	}
}

// Results returns the channel on which job outcomes are delivered, in
// submission order. The channel is closed once [Run] returns.
func (d *Dispatcher) Results() <-chan Result {
	return d.results
}

// Close stops intake. Jobs already queued are still processed by [Run];
// calling Close more than once is safe.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.jobs)
}

// Run is the worker loop. It processes queued jobs one at a time until the
// queue is closed and drained, or ctx is cancelled. The results channel is
// closed before Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.results)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-d.jobs:
			if !ok {
				return nil
			}
			d.metrics.QueueDepth.Add(ctx, -1)
			res := d.process(ctx, job)
			select {
			case d.results <- res:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// process runs one backend request with the bounded timeout and maps the
// outcome onto the asr error taxonomy.
func (d *Dispatcher) process(ctx context.Context, job Job) Result {
	ctx, span := observe.StartSpan(ctx, "dispatch.transcribe",
		trace.WithAttributes(
			attribute.Int64("job.seq", int64(job.Seq)),
			attribute.Float64("job.audio_seconds", job.Duration.Seconds()),
		),
	)
	defer span.End()

	jobCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	text, err := d.backend.Transcribe(jobCtx, job.WAV)
	elapsed := time.Since(start)

	if errors.Is(err, context.DeadlineExceeded) {
		err = asr.ErrTimeout
	}

	status := statusFor(err)
	d.metrics.RecordJob(ctx, status, elapsed)
	log := observe.Logger(ctx)
	if err != nil {
		d.metrics.RecordBackendError(ctx, status)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("transcription job failed",
			"seq", job.Seq,
			"status", status,
			"elapsed", elapsed,
			"error", err)
		return Result{Seq: job.Seq, Err: fmt.Errorf("dispatch: job %d: %w", job.Seq, err)}
	}

	span.SetAttributes(attribute.Int("result.chars", len(text)))
	log.Debug("transcription job done",
		"seq", job.Seq,
		"elapsed", elapsed,
		"chars", len(text))
	return Result{Seq: job.Seq, Text: text}
}

// statusFor maps an error onto the job status label used in metrics.
func statusFor(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, asr.ErrTimeout):
		return "timeout"
	case errors.Is(err, asr.ErrBackendUnavailable):
		return "unavailable"
	default:
		var be *asr.BackendError
		if errors.As(err, &be) {
			return "backend_error"
		}
		return "error"
	}
}
