// Package observe provides application-wide observability primitives for
// Auricle: OpenTelemetry metrics, tracing helpers, and the structured-logging
// glue that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Auricle metrics.
const meterName = "github.com/MrWong99/auricle"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// TranscriptionDuration tracks backend transcription latency per job.
	TranscriptionDuration metric.Float64Histogram

	// SegmentDuration tracks the audio length of emitted speech segments.
	SegmentDuration metric.Float64Histogram

	// --- Counters ---

	// SegmentsEmitted counts speech segments emitted by the detector. Use
	// with attribute:
	//   attribute.String("reason", ...)
	SegmentsEmitted metric.Int64Counter

	// SegmentsDropped counts segments dropped before dispatch (full queue,
	// shutdown).
	SegmentsDropped metric.Int64Counter

	// Jobs counts completed transcription jobs. Use with attribute:
	//   attribute.String("status", ...)
	Jobs metric.Int64Counter

	// --- Error counters ---

	// BackendErrors counts transcription backend failures.
	BackendErrors metric.Int64Counter

	// --- Gauges ---

	// QueueDepth tracks the number of jobs waiting in the dispatch queue.
	QueueDepth metric.Int64UpDownCounter

	// EventSubscribers tracks the number of connected event-stream clients.
	EventSubscribers metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for whisper inference latencies.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TranscriptionDuration, err = m.Float64Histogram("auricle.transcription.duration",
		metric.WithDescription("Latency of backend transcription per job."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SegmentDuration, err = m.Float64Histogram("auricle.segment.duration",
		metric.WithDescription("Audio length of emitted speech segments."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.SegmentsEmitted, err = m.Int64Counter("auricle.segments.emitted",
		metric.WithDescription("Total speech segments emitted by the detector, by end reason."),
	); err != nil {
		return nil, err
	}
	if met.SegmentsDropped, err = m.Int64Counter("auricle.segments.dropped",
		metric.WithDescription("Total segments dropped before dispatch."),
	); err != nil {
		return nil, err
	}
	if met.Jobs, err = m.Int64Counter("auricle.jobs",
		metric.WithDescription("Total completed transcription jobs by status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.BackendErrors, err = m.Int64Counter("auricle.backend.errors",
		metric.WithDescription("Total transcription backend failures."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.QueueDepth, err = m.Int64UpDownCounter("auricle.queue.depth",
		metric.WithDescription("Number of jobs waiting in the dispatch queue."),
	); err != nil {
		return nil, err
	}
	if met.EventSubscribers, err = m.Int64UpDownCounter("auricle.event.subscribers",
		metric.WithDescription("Number of connected event-stream clients."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordSegment is a convenience method that records an emitted segment with
// its end reason and audio length.
func (m *Metrics) RecordSegment(ctx context.Context, reason string, audioLen time.Duration) {
	m.SegmentsEmitted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
	m.SegmentDuration.Record(ctx, audioLen.Seconds())
}

// RecordJob is a convenience method that records a completed transcription
// job with its terminal status and backend latency.
func (m *Metrics) RecordJob(ctx context.Context, status string, elapsed time.Duration) {
	m.Jobs.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
	m.TranscriptionDuration.Record(ctx, elapsed.Seconds())
}

// RecordBackendError is a convenience method that records a backend failure
// by error kind.
func (m *Metrics) RecordBackendError(ctx context.Context, kind string) {
	m.BackendErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}
