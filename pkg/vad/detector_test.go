package vad_test

import (
	"math"
	"testing"

	"github.com/MrWong99/auricle/pkg/audio"
	"github.com/MrWong99/auricle/pkg/vad"
)

const (
	testRate      = 16000
	testBlockSize = 128 // 8 ms at 16 kHz
)

// speechBlock returns one block of a 440 Hz tone at the given peak amplitude.
// A 0.1 peak has RMS ≈ 0.07, far above the default speech threshold.
func speechBlock(amplitude float64, phase int) audio.Block {
	samples := make([]float32, testBlockSize)
	for i := range samples {
		samples[i] = float32(amplitude * math.Sin(2*math.Pi*440*float64(phase*testBlockSize+i)/testRate))
	}
	return audio.Block{Samples: samples, SampleRate: testRate}
}

// silenceBlock returns one block of zero samples.
func silenceBlock() audio.Block {
	return audio.Block{Samples: make([]float32, testBlockSize), SampleRate: testRate}
}

// mustDetector creates a Detector with the default config, failing the test
// on error.
func mustDetector(t *testing.T) *vad.Detector {
	t.Helper()
	d, err := vad.NewDetector(vad.DefaultConfig())
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	return d
}

// feed pushes n blocks produced by mk through the detector and returns every
// emitted segment.
func feed(d *vad.Detector, n int, mk func(i int) audio.Block) []vad.Segment {
	var segs []vad.Segment
	for i := 0; i < n; i++ {
		if seg, ok := d.Process(mk(i)); ok {
			segs = append(segs, seg)
		}
	}
	return segs
}

func blocksFor(ms int) int {
	return ms * testRate / 1000 / testBlockSize
}

// ---- configuration ----------------------------------------------------------

func TestConfig_Validate_Defaults(t *testing.T) {
	if err := vad.DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestConfig_Validate_CollectsAllViolations(t *testing.T) {
	cfg := vad.Config{
		SampleRate:          0,
		SpeechThreshold:     0.005,
		SilenceThreshold:    0.01, // above speech threshold
		SilenceDurationMs:   0,
		MinSpeechDurationMs: -1,
		MaxSpeechDurationMs: 0,
		EnergySmoothing:     1.5,
		PrePaddingMs:        0,
		PostPaddingMs:       0,
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, want := range []string{"sample_rate", "silence_threshold", "energy_smoothing", "pre_padding_ms"} {
		if !containsSubstring(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err.Error(), want)
		}
	}
}

func containsSubstring(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

// ---- listening state --------------------------------------------------------

func TestDetector_SilenceStream_NeverLeavesListening(t *testing.T) {
	d := mustDetector(t)

	segs := feed(d, blocksFor(2000), func(int) audio.Block { return silenceBlock() })

	if len(segs) != 0 {
		t.Fatalf("silent stream emitted %d segments, want 0", len(segs))
	}
	if d.State() != vad.StateListening {
		t.Fatalf("state = %v, want listening", d.State())
	}
}

func TestDetector_EmptyBlock_Ignored(t *testing.T) {
	d := mustDetector(t)

	if _, ok := d.Process(audio.Block{SampleRate: testRate}); ok {
		t.Fatal("empty block produced a segment")
	}
	if d.State() != vad.StateListening {
		t.Fatalf("state = %v, want listening", d.State())
	}
}

func TestDetector_SpeechEnergy_EntersSpeechDetected(t *testing.T) {
	d := mustDetector(t)

	d.Process(speechBlock(0.5, 0))

	if d.State() != vad.StateSpeechDetected {
		t.Fatalf("state after loud block = %v, want speech-detected", d.State())
	}
}

// ---- false alarm ------------------------------------------------------------

func TestDetector_ShortBurst_DiscardedAsFalseAlarm(t *testing.T) {
	d := mustDetector(t)

	// A single loud block followed by silence: the smoothed energy decays
	// below the silence threshold and the half-silence-window rule discards
	// the candidate before it can reach the minimum speech duration.
	d.Process(speechBlock(0.3, 0))
	segs := feed(d, blocksFor(2000), func(int) audio.Block { return silenceBlock() })

	if len(segs) != 0 {
		t.Fatalf("false alarm emitted %d segments, want 0", len(segs))
	}
	if d.State() != vad.StateListening {
		t.Fatalf("state = %v, want listening after discard", d.State())
	}
}

// ---- confirmed speech -------------------------------------------------------

func TestDetector_SustainedSpeechThenSilence_EmitsOneSilenceSegment(t *testing.T) {
	d := mustDetector(t)
	cfg := vad.DefaultConfig()

	// Fill padding history, then 500 ms speech, then generous silence.
	feed(d, blocksFor(300), func(int) audio.Block { return silenceBlock() })
	var segs []vad.Segment
	segs = append(segs, feed(d, blocksFor(500), func(i int) audio.Block { return speechBlock(0.3, i) })...)
	segs = append(segs, feed(d, blocksFor(1000), func(int) audio.Block { return silenceBlock() })...)

	if len(segs) != 1 {
		t.Fatalf("emitted %d segments, want exactly 1", len(segs))
	}
	seg := segs[0]
	if seg.EndReason != vad.EndSilence {
		t.Errorf("EndReason = %v, want silence", seg.EndReason)
	}

	minTotal := (cfg.PrePaddingMs + cfg.MinSpeechDurationMs) * testRate / 1000
	if len(seg.Samples) < minTotal {
		t.Errorf("segment holds %d samples, want >= %d (pre-padding + min speech)", len(seg.Samples), minTotal)
	}
	if seg.ActiveDuration.Milliseconds() < int64(cfg.MinSpeechDurationMs) {
		t.Errorf("ActiveDuration = %v, want >= %dms", seg.ActiveDuration, cfg.MinSpeechDurationMs)
	}
	if seg.AvgEnergy <= 0 {
		t.Errorf("AvgEnergy = %v, want > 0", seg.AvgEnergy)
	}

	// The trailing post-padding must be present and (here) near-silent.
	post := cfg.PostPaddingMs * testRate / 1000
	if len(seg.Samples) < post {
		t.Fatalf("segment shorter than post-padding window")
	}
	tail := seg.Samples[len(seg.Samples)-post:]
	if rms := audio.RMS(tail); rms > 0.001 {
		t.Errorf("trailing padding RMS = %v, want near-silence", rms)
	}

	if d.State() != vad.StateListening {
		t.Fatalf("state after emission = %v, want listening", d.State())
	}
}

func TestDetector_ContinuousSpeech_ForceCutAtMaxDuration(t *testing.T) {
	cfg := vad.DefaultConfig()
	cfg.MaxSpeechDurationMs = 2000 // keep the test fast
	d, err := vad.NewDetector(cfg)
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}

	segs := feed(d, blocksFor(3000), func(i int) audio.Block { return speechBlock(0.3, i) })

	if len(segs) == 0 {
		t.Fatal("continuous speech never emitted a segment")
	}
	seg := segs[0]
	if seg.EndReason != vad.EndMaxDuration {
		t.Errorf("EndReason = %v, want max-duration", seg.EndReason)
	}
	if got := seg.ActiveDuration.Milliseconds(); got > int64(cfg.MaxSpeechDurationMs) {
		t.Errorf("ActiveDuration = %dms exceeds hard cap %dms", got, cfg.MaxSpeechDurationMs)
	}

	// The machine must keep cycling: ongoing speech starts the next candidate.
	if d.State() == vad.StateListening {
		t.Error("detector idle during continuous speech after force cut")
	}
}

func TestDetector_MaxDurationSegment_ReceivesPostPadding(t *testing.T) {
	cfg := vad.DefaultConfig()
	cfg.MaxSpeechDurationMs = 1000
	d, err := vad.NewDetector(cfg)
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}

	segs := feed(d, blocksFor(1500), func(i int) audio.Block { return speechBlock(0.3, i) })
	if len(segs) == 0 {
		t.Fatal("no segment emitted")
	}

	// Padding is uniform across end reasons: total length exceeds the active
	// span by at least the post-padding window (pre-padding history may be
	// clipped at stream start).
	seg := segs[0]
	active := int(seg.ActiveDuration.Milliseconds()) * testRate / 1000
	post := cfg.PostPaddingMs * testRate / 1000
	if len(seg.Samples) < active+post {
		t.Errorf("segment %d samples, want >= active %d + post-padding %d", len(seg.Samples), active, post)
	}
}

func TestDetector_PrePadding_ClippedToAvailableHistory(t *testing.T) {
	d := mustDetector(t)

	// Trigger immediately with no prior history: the segment starts with
	// whatever the ring holds (nothing), not a zero-padded window.
	segs := feed(d, blocksFor(600), func(i int) audio.Block { return speechBlock(0.3, i) })
	segs = append(segs, feed(d, blocksFor(1000), func(int) audio.Block { return silenceBlock() })...)

	if len(segs) != 1 {
		t.Fatalf("emitted %d segments, want 1", len(segs))
	}
	pre := vad.DefaultConfig().PrePaddingMs * testRate / 1000
	active := int(segs[0].ActiveDuration.Milliseconds()) * testRate / 1000
	if len(segs[0].Samples) >= active+pre {
		t.Errorf("segment includes a full pre-padding window despite empty history")
	}
}

func TestDetector_Reset_DiscardsCandidate(t *testing.T) {
	d := mustDetector(t)

	feed(d, blocksFor(100), func(i int) audio.Block { return speechBlock(0.3, i) })
	if d.State() == vad.StateListening {
		t.Fatal("expected an in-progress candidate before Reset")
	}

	d.Reset()
	if d.State() != vad.StateListening {
		t.Fatalf("state after Reset = %v, want listening", d.State())
	}
	if d.SmoothedEnergy() != 0 {
		t.Fatalf("smoothed energy after Reset = %v, want 0", d.SmoothedEnergy())
	}

	// No leftover segment should surface from the discarded candidate.
	segs := feed(d, blocksFor(1000), func(int) audio.Block { return silenceBlock() })
	if len(segs) != 0 {
		t.Fatalf("discarded candidate leaked %d segments", len(segs))
	}
}
