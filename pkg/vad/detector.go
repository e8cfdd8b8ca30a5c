package vad

import (
	"log/slog"

	"github.com/MrWong99/auricle/pkg/audio"
)

// ringMarginMs is added to the larger padding window when sizing the
// detector's internal ring buffer, so padding reads never clip against the
// write head.
const ringMarginMs = 250

// Detector is the VAD state machine. It consumes one [audio.Block] per
// Process call, maintains the three-state hysteresis cycle, and emits a
// [Segment] when an utterance completes.
//
// All state lives in explicit fields and all timing is derived from
// accumulated sample counts, so transitions are deterministic functions of
// the block sequence. Re-entrant calls are not permitted; create one
// Detector per stream and call Process from a single goroutine.
type Detector struct {
	cfg  Config
	ring *audio.Ring

	state    State
	smoothed float64

	acc *accumulator

	// silenceRun counts consecutive samples with smoothed energy below the
	// silence threshold. Used for both the speaking-state end condition and
	// the provisional-state false-alarm window.
	silenceRun int

	// derived sample counts, fixed at construction
	minSpeechSamples  int
	maxSpeechSamples  int
	silenceSamples    int
	falseAlarmSamples int
}

// NewDetector creates a Detector for the given configuration. Returns an
// error when the configuration violates its invariants.
func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	padMs := cfg.PrePaddingMs
	if cfg.PostPaddingMs > padMs {
		padMs = cfg.PostPaddingMs
	}

	return &Detector{
		cfg:               cfg,
		ring:              audio.NewRing(padMs+ringMarginMs, cfg.SampleRate),
		state:             StateListening,
		minSpeechSamples:  cfg.samples(cfg.MinSpeechDurationMs),
		maxSpeechSamples:  cfg.samples(cfg.MaxSpeechDurationMs),
		silenceSamples:    cfg.samples(cfg.SilenceDurationMs),
		falseAlarmSamples: cfg.samples(cfg.falseAlarmSilenceMs()),
	}, nil
}

// State returns the detector's current state.
func (d *Detector) State() State { return d.state }

// SmoothedEnergy returns the current exponentially smoothed energy estimate.
func (d *Detector) SmoothedEnergy() float64 { return d.smoothed }

// Process advances the state machine by one block. When the block completes
// an utterance, the finalized segment is returned with ok=true; otherwise ok
// is false and the returned Segment is the zero value.
//
// Empty blocks are ignored: no state change, no emission. Process never
// blocks and never fails.
func (d *Detector) Process(block audio.Block) (seg Segment, ok bool) {
	if block.Empty() {
		return Segment{}, false
	}

	raw := audio.RMS(block.Samples)
	d.smoothed = d.cfg.EnergySmoothing*raw + (1-d.cfg.EnergySmoothing)*d.smoothed

	if d.smoothed < d.cfg.SilenceThreshold {
		d.silenceRun += len(block.Samples)
	} else {
		d.silenceRun = 0
	}

	switch d.state {
	case StateListening:
		d.processListening(block)

	case StateSpeechDetected:
		d.processSpeechDetected(block)

	case StateSpeaking:
		seg, ok = d.processSpeaking(block)
	}

	// The ring always receives every block, after transition logic, so that
	// pre-padding reads exclude the trigger block itself (it is appended to
	// the segment directly).
	d.ring.Write(block.Samples)

	return seg, ok
}

// processListening handles the idle state: a threshold crossing seeds a new
// candidate segment with pre-padding context.
func (d *Detector) processListening(block audio.Block) {
	if d.smoothed <= d.cfg.SpeechThreshold {
		return
	}

	d.acc = newAccumulator(d.ring.TailMs(d.cfg.PrePaddingMs))
	d.acc.append(block.Samples, d.smoothed)
	d.silenceRun = 0
	d.state = StateSpeechDetected

	slog.Debug("speech candidate detected", "energy", d.smoothed)
}

// processSpeechDetected handles the provisional state: the candidate either
// survives long enough to be confirmed or is discarded as a false alarm.
func (d *Detector) processSpeechDetected(block audio.Block) {
	d.acc.append(block.Samples, d.smoothed)

	if d.acc.activeSamples >= d.minSpeechSamples {
		d.state = StateSpeaking
		slog.Debug("speech confirmed", "active_ms", d.acc.activeSamples*1000/d.cfg.SampleRate)
		return
	}

	if d.smoothed < d.cfg.SilenceThreshold && d.silenceRun >= d.falseAlarmSamples {
		// False alarm: the burst died before reaching the minimum speech
		// duration. Discard everything accumulated so far.
		slog.Debug("false alarm discarded", "active_ms", d.acc.activeSamples*1000/d.cfg.SampleRate)
		d.acc = nil
		d.state = StateListening
	}
}

// processSpeaking handles confirmed speech: accumulate until the trailing
// silence window elapses or the duration cap is hit.
func (d *Detector) processSpeaking(block audio.Block) (Segment, bool) {
	d.acc.append(block.Samples, d.smoothed)

	if d.silenceRun >= d.silenceSamples {
		return d.finalize(EndSilence), true
	}
	if d.acc.activeSamples >= d.maxSpeechSamples {
		return d.finalize(EndMaxDuration), true
	}
	return Segment{}, false
}

// finalize emits the current accumulator as a Segment with trailing padding
// and returns the machine to listening. Padding is uniform across both end
// reasons.
func (d *Detector) finalize(reason EndReason) Segment {
	seg := d.acc.finalize(d.ring.TailMs(d.cfg.PostPaddingMs), d.cfg.SampleRate, reason)
	d.acc = nil
	d.state = StateListening

	slog.Debug("segment emitted",
		"reason", reason.String(),
		"duration_ms", seg.Duration().Milliseconds(),
		"active_ms", seg.ActiveDuration.Milliseconds(),
	)
	return seg
}

// Reset returns the detector to its initial state, discarding any in-progress
// candidate and all padding history. Use this when the capture stream is
// interrupted or restarted so stale context cannot leak into the next
// segment.
func (d *Detector) Reset() {
	d.state = StateListening
	d.smoothed = 0
	d.silenceRun = 0
	d.acc = nil
	d.ring.Reset()
}
