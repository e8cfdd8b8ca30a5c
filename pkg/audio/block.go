// Package audio provides the primitive audio types and transforms used by the
// Auricle dictation pipeline: the Block sample container, RMS energy
// measurement, the padding ring buffer, and PCM/WAV encoding.
//
// Everything in this package runs in the audio-processing context. Functions
// are allocation-light, never block, and never perform I/O, so they are safe
// to call from a capture callback that must finish well under the block
// period (~8 ms for 128 samples at 16 kHz).
package audio

import "time"

// Block is a fixed-cadence chunk of mono audio as delivered by the capture
// layer. Samples are amplitudes in [-1, 1]. Blocks are transient: the
// pipeline does not retain them beyond one processing step except via copies
// taken by [Ring].
type Block struct {
	// Samples holds the mono float samples for this block.
	Samples []float32

	// SampleRate in Hz (the reference configuration uses 16000).
	SampleRate int
}

// Duration returns the playing time covered by the block. Returns 0 when the
// sample rate is unset.
func (b Block) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// Empty reports whether the block carries no samples. Empty blocks are
// treated as silence by the VAD.
func (b Block) Empty() bool {
	return len(b.Samples) == 0
}
