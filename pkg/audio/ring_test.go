package audio_test

import (
	"math"
	"testing"

	"github.com/MrWong99/auricle/pkg/audio"
)

// rampSamples returns n samples with values 0, 1, 2, … so that positions are
// recognisable after wraparound.
func rampSamples(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i)
	}
	return out
}

func TestNewRing_CapacityFromMs(t *testing.T) {
	r := audio.NewRing(250, 16000)
	if got, want := r.Cap(), 4000; got != want {
		t.Fatalf("Cap() = %d, want %d", got, want)
	}
}

func TestNewRing_TinyCapacity_ClampedToOneSample(t *testing.T) {
	r := audio.NewRing(0, 16000)
	if r.Cap() < 1 {
		t.Fatalf("Cap() = %d, want >= 1", r.Cap())
	}
}

func TestRing_TailMs_EmptyBuffer_ReturnsNil(t *testing.T) {
	r := audio.NewRing(100, 16000)
	if got := r.TailMs(50); got != nil {
		t.Fatalf("TailMs on empty ring = %v, want nil", got)
	}
}

func TestRing_TailMs_ClippedToWrittenHistory(t *testing.T) {
	r := audio.NewRing(1000, 16000) // 16000-sample capacity
	r.Write(rampSamples(160))       // only 10 ms written

	got := r.TailMs(250)
	if len(got) != 160 {
		t.Fatalf("TailMs(250) returned %d samples, want 160 (all written history)", len(got))
	}
	if got[0] != 0 || got[159] != 159 {
		t.Fatalf("TailMs returned wrong samples: first=%v last=%v", got[0], got[159])
	}
}

func TestRing_TailMs_ReturnsMostRecent(t *testing.T) {
	r := audio.NewRing(10, 16000) // 160-sample capacity
	r.Write(rampSamples(160))
	r.Write([]float32{1000, 1001, 1002, 1003}) // overwrite the 4 oldest

	got := r.TailMs(1000) // more than capacity: full buffer
	if len(got) != 160 {
		t.Fatalf("TailMs returned %d samples, want 160", len(got))
	}
	// Last four samples must be the newest writes, in order.
	for i := 0; i < 4; i++ {
		want := float32(1000 + i)
		if got[156+i] != want {
			t.Errorf("got[%d] = %v, want %v", 156+i, got[156+i], want)
		}
	}
	// Oldest surviving sample is 4 (0..3 were overwritten).
	if got[0] != 4 {
		t.Errorf("oldest sample = %v, want 4", got[0])
	}
}

func TestRing_TailMs_ReturnsCopy(t *testing.T) {
	r := audio.NewRing(10, 16000)
	r.Write([]float32{1, 2, 3})

	tail := r.TailMs(1000)
	tail[0] = 99
	again := r.TailMs(1000)
	if again[0] == 99 {
		t.Fatal("TailMs result aliases the ring's backing array")
	}
}

func TestRing_Reset_DiscardsHistory(t *testing.T) {
	r := audio.NewRing(10, 16000)
	r.Write(rampSamples(50))
	r.Reset()
	if r.Len() != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", r.Len())
	}
	if got := r.TailMs(1000); got != nil {
		t.Fatalf("TailMs after Reset = %v, want nil", got)
	}
}

func TestRMS_Empty_ReturnsZero(t *testing.T) {
	if got := audio.RMS(nil); got != 0 {
		t.Fatalf("RMS(nil) = %v, want 0", got)
	}
}

func TestRMS_ConstantAmplitude(t *testing.T) {
	samples := make([]float32, 128)
	for i := range samples {
		samples[i] = 0.5
	}
	if got := audio.RMS(samples); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("RMS of constant 0.5 = %v, want 0.5", got)
	}
}

func TestRMS_SineWave(t *testing.T) {
	samples := make([]float32, 16000)
	for i := range samples {
		samples[i] = float32(0.8 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	want := 0.8 / math.Sqrt2
	if got := audio.RMS(samples); math.Abs(got-want) > 1e-3 {
		t.Fatalf("RMS of 0.8 sine = %v, want ≈ %v", got, want)
	}
}
