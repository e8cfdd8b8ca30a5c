// Package pipeline wires the detector, the dispatcher, and the assembler into
// the full capture-to-transcript flow.
//
// Two execution contexts meet here. The audio context calls [Pipeline.ProcessBlock]
// for every captured block; that path performs no I/O and never blocks, so it
// stays well under the block period. Finished segments cross into the
// dispatch context over the dispatcher's bounded queue, where a single worker
// talks to the backend and results feed the assembler in emission order.
package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/auricle/internal/dispatch"
	"github.com/MrWong99/auricle/internal/observe"
	"github.com/MrWong99/auricle/internal/transcript"
	"github.com/MrWong99/auricle/pkg/asr"
	"github.com/MrWong99/auricle/pkg/audio"
	"github.com/MrWong99/auricle/pkg/vad"
)

// Option is a functional option for configuring a [Pipeline].
type Option func(*Pipeline)

// WithMetrics replaces the metrics sink. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithQueueSize overrides the dispatcher queue capacity.
func WithQueueSize(n int) Option {
	return func(p *Pipeline) { p.queueSize = n }
}

// WithJobTimeout overrides the per-job backend timeout.
func WithJobTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) { p.jobTimeout = timeout }
}

// WithAssembler replaces the default assembler, e.g. to attach a vocabulary
// corrector or change the overlap window.
func WithAssembler(a *transcript.Assembler) Option {
	return func(p *Pipeline) { p.assembler = a }
}

// Pipeline owns the detector on the audio side and the dispatcher plus
// assembler on the dispatch side. Construct with [New], register callbacks,
// start [Run], feed blocks through [ProcessBlock], and finish with [Close].
type Pipeline struct {
	detector   *vad.Detector
	dispatcher *dispatch.Dispatcher
	assembler  *transcript.Assembler
	metrics    *observe.Metrics

	queueSize  int
	jobTimeout time.Duration

	// seq is touched only by the audio context.
	seq uint64

	closed atomic.Bool

	onSegment    func(wav []byte)
	onTranscript func(fullText string)
}

// New builds a Pipeline around the given detector configuration and backend.
func New(vadCfg vad.Config, backend asr.Backend, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	if p.assembler == nil {
		p.assembler = transcript.NewAssembler()
	}

	det, err := vad.NewDetector(vadCfg)
	if err != nil {
		return nil, err
	}
	p.detector = det

	dopts := []dispatch.Option{dispatch.WithMetrics(p.metrics)}
	if p.queueSize > 0 {
		dopts = append(dopts, dispatch.WithQueueSize(p.queueSize))
	}
	if p.jobTimeout > 0 {
		dopts = append(dopts, dispatch.WithJobTimeout(p.jobTimeout))
	}
	p.dispatcher = dispatch.New(backend, dopts...)
	return p, nil
}

// OnSegmentReady registers fn to receive every emitted segment's encoded WAV
// buffer. fn runs on the audio context and must return quickly. Register
// before Run.
func (p *Pipeline) OnSegmentReady(fn func(wav []byte)) {
	p.onSegment = fn
}

// OnTranscriptUpdated registers fn to receive the full transcript after each
// change. fn runs on the dispatch context. Register before Run.
func (p *Pipeline) OnTranscriptUpdated(fn func(fullText string)) {
	p.onTranscript = fn
}

// ProcessBlock advances the detector by one captured block. It never blocks:
// when a segment is emitted it is encoded and submitted, and if the dispatch
// queue is full the segment is dropped with a warning. Calls after Close are
// ignored.
func (p *Pipeline) ProcessBlock(block audio.Block) {
	if p.closed.Load() {
		return
	}
	seg, ok := p.detector.Process(block)
	if !ok {
		return
	}

	wav := audio.EncodeWAV(seg.Samples, seg.SampleRate)
	p.seq++
	p.metrics.RecordSegment(context.Background(), seg.EndReason.String(), seg.Duration())

	if p.onSegment != nil {
		p.onSegment(wav)
	}

	job := dispatch.Job{Seq: p.seq, WAV: wav, Duration: seg.Duration()}
	if err := p.dispatcher.Submit(job); err != nil {
		p.metrics.SegmentsDropped.Add(context.Background(), 1)
		slog.Warn("segment dropped",
			"seq", p.seq,
			"reason", seg.EndReason.String(),
			"audio", seg.Duration(),
			"error", err)
	}
}

// Run drives the dispatch context: the backend worker and the result drain
// that feeds the assembler. It blocks until Close has been called and all
// queued jobs are finished, or ctx is cancelled. Failed jobs are logged and
// skipped; the transcript is never extended with partial text.
func (p *Pipeline) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.dispatcher.Run(ctx)
	})

	g.Go(func() error {
		for res := range p.dispatcher.Results() {
			if res.Err != nil {
				// Already logged by the dispatcher; the transcript is
				// unaffected.
				continue
			}
			text, changed := p.assembler.Apply(res.Text)
			if !changed {
				continue
			}
			if p.onTranscript != nil {
				p.onTranscript(text)
			}
		}
		return nil
	})

	return g.Wait()
}

// Close stops intake: later ProcessBlock calls are ignored, any unconfirmed
// candidate segment is discarded, and queued jobs are left to finish so Run
// can return. Calling Close more than once is safe.
func (p *Pipeline) Close() {
	if p.closed.Swap(true) {
		return
	}
	p.detector.Reset()
	p.dispatcher.Close()
}

// Transcript returns the committed transcript so far.
func (p *Pipeline) Transcript() string {
	return p.assembler.Text()
}
