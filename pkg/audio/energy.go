package audio

import "math"

// RMS returns the root-mean-square amplitude of samples, the loudness proxy
// used by the VAD. The result is in the same [0, 1] scale as the sample
// amplitudes. Returns 0 for an empty slice.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
