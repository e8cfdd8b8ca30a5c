package audio

// Ring is a fixed-capacity circular buffer of float32 samples used to retain
// the most recent audio for pre/post padding around detected speech. Once
// full, writes overwrite the oldest samples — the buffer never blocks and
// never grows, which keeps the audio callback safe from allocation or
// backpressure stalls.
//
// Ring runs exclusively in the audio-processing context. Create one per
// stream; not designed for shared use across goroutines.
type Ring struct {
	buf        []float32
	sampleRate int
	head       int // next write position
	length     int // number of valid samples
}

// NewRing creates a Ring holding up to capacityMs milliseconds of audio at
// the given sample rate. Capacity is clamped to at least one sample.
func NewRing(capacityMs, sampleRate int) *Ring {
	n := sampleRate * capacityMs / 1000
	if n < 1 {
		n = 1
	}
	return &Ring{
		buf:        make([]float32, n),
		sampleRate: sampleRate,
	}
}

// Write appends samples, overwriting the oldest data once the buffer is
// full. It is called for every block regardless of VAD state so that padding
// context is always available.
func (r *Ring) Write(samples []float32) {
	for _, s := range samples {
		r.buf[r.head] = s
		r.head = (r.head + 1) % len(r.buf)
		if r.length < len(r.buf) {
			r.length++
		}
	}
}

// TailMs returns a copy of up to durationMs milliseconds of the most recent
// audio. When less history has been written (or the capacity is smaller than
// the request), the result is clipped to what is actually held — shorter
// output, never an error.
func (r *Ring) TailMs(durationMs int) []float32 {
	want := r.sampleRate * durationMs / 1000
	if want > r.length {
		want = r.length
	}
	if want <= 0 {
		return nil
	}
	out := make([]float32, want)
	start := (r.head - want + len(r.buf)) % len(r.buf)
	for i := range out {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

// Len returns the number of valid samples currently held.
func (r *Ring) Len() int { return r.length }

// Cap returns the buffer capacity in samples.
func (r *Ring) Cap() int { return len(r.buf) }

// Reset discards all held samples without releasing the backing array.
func (r *Ring) Reset() {
	r.head = 0
	r.length = 0
}
