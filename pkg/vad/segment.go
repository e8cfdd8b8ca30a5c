package vad

import "time"

// Segment is a finalized utterance: one contiguous buffer of samples bounded
// by pre/post padding, plus the metadata downstream stages need. Segments
// are immutable once emitted; the detector retains no reference to them.
type Segment struct {
	// Samples is the concatenated audio: pre-padding, the accumulated speech
	// blocks, and trailing post-padding.
	Samples []float32

	// SampleRate in Hz, copied from the detector configuration.
	SampleRate int

	// EndReason records why accumulation stopped.
	EndReason EndReason

	// ActiveDuration is the speech time excluding pre-padding — the span
	// from the trigger block to the final accumulated block.
	ActiveDuration time.Duration

	// AvgEnergy is the mean smoothed energy over the accumulated blocks.
	AvgEnergy float64
}

// Duration returns the total playing time of the finalized buffer, padding
// included.
func (s Segment) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(s.Samples)) * time.Second / time.Duration(s.SampleRate)
}

// accumulator collects blocks for the segment under construction. It is
// seeded with pre-padding on the listening → speech-detected transition,
// grows while the candidate lives, and is either discarded (false alarm) or
// finalized into a [Segment].
type accumulator struct {
	samples       []float32
	activeSamples int     // samples appended since the trigger block
	energySum     float64 // sum of smoothed energies, one term per block
	energyBlocks  int
}

// newAccumulator seeds a fresh accumulator with padding context.
func newAccumulator(prePadding []float32) *accumulator {
	acc := &accumulator{
		// Pre-size generously: padding plus roughly a second of speech
		// avoids early re-allocations in the audio callback.
		samples: make([]float32, 0, len(prePadding)+16000),
	}
	acc.samples = append(acc.samples, prePadding...)
	return acc
}

// append adds one block's samples and its smoothed energy reading.
func (a *accumulator) append(samples []float32, smoothedEnergy float64) {
	a.samples = append(a.samples, samples...)
	a.activeSamples += len(samples)
	a.energySum += smoothedEnergy
	a.energyBlocks++
}

// finalize appends post-padding and produces the emitted Segment.
func (a *accumulator) finalize(postPadding []float32, sampleRate int, reason EndReason) Segment {
	samples := append(a.samples, postPadding...)

	var avg float64
	if a.energyBlocks > 0 {
		avg = a.energySum / float64(a.energyBlocks)
	}
	return Segment{
		Samples:        samples,
		SampleRate:     sampleRate,
		EndReason:      reason,
		ActiveDuration: time.Duration(a.activeSamples) * time.Second / time.Duration(sampleRate),
		AvgEnergy:      avg,
	}
}
