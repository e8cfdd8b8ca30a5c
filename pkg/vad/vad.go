// Package vad implements the energy-based voice activity detector at the core
// of the Auricle dictation pipeline.
//
// The central type is [Detector], a per-stream state machine that consumes
// fixed-size audio blocks and decides when speech starts and stops. It cycles
// through three states — listening, provisional speech, confirmed speech —
// with hysteresis thresholds so that transient clicks neither trigger a
// segment nor cut one short. Completed utterances are emitted as [Segment]
// values carrying pre/post padding context read from a [audio.Ring].
//
// Detector is synchronous by design: Process returns immediately, making it
// suitable for the low-latency audio callback path. All timing is tracked in
// accumulated sample counts rather than wall-clock time, so the machine can
// be unit-tested by feeding synthetic blocks without a live audio thread.
//
// A Detector is not safe for concurrent use; exactly one block is processed
// at a time, in arrival order.
package vad

import (
	"errors"
	"fmt"
)

// Default configuration values. These match the reference tuning for a
// 16 kHz mono capture with 128-sample (8 ms) blocks.
const (
	DefaultSpeechThreshold  = 0.01
	DefaultSilenceThreshold = 0.005
	DefaultSilenceMs        = 400
	DefaultMinSpeechMs      = 300
	DefaultMaxSpeechMs      = 25_000
	DefaultEnergySmoothing  = 0.25
	DefaultPrePaddingMs     = 250
	DefaultPostPaddingMs    = 150
)

// Config holds the tuning parameters for a [Detector]. Thresholds are RMS
// amplitudes in the same [0, 1] scale as the float samples.
type Config struct {
	// SampleRate is the audio sample rate in Hz. Must match the rate of the
	// blocks passed to Process.
	SampleRate int

	// SpeechThreshold is the smoothed energy above which speech may be
	// starting. Typical: 0.01.
	SpeechThreshold float64

	// SilenceThreshold is the smoothed energy below which silence is
	// confirmed. Must be ≤ SpeechThreshold. Typical: 0.005.
	SilenceThreshold float64

	// SilenceDurationMs is the trailing silence required to end a confirmed
	// speech segment.
	SilenceDurationMs int

	// MinSpeechDurationMs is the minimum confirmed-speech time before a
	// candidate is treated as real speech; shorter bursts are discarded as
	// false alarms.
	MinSpeechDurationMs int

	// MaxSpeechDurationMs is the hard cap on active speech; reaching it
	// forces segment emission with [EndMaxDuration].
	MaxSpeechDurationMs int

	// EnergySmoothing is the weight α in [0, 1] for exponential smoothing of
	// the raw block energy: smoothed = α·energy + (1−α)·smoothed. Higher
	// values react faster; lower values damp single-block noise spikes.
	EnergySmoothing float64

	// PrePaddingMs is how much audio context preceding the trigger block is
	// prepended to each segment.
	PrePaddingMs int

	// PostPaddingMs is how much trailing audio is appended at finalization.
	PostPaddingMs int

	// FalseAlarmSilenceMs is the silence run that aborts an unconfirmed
	// candidate while still in the provisional state. When 0 it defaults to
	// SilenceDurationMs/2, which tolerates brief confirmation-phase dips
	// without either over-triggering on short noise bursts or excessively
	// delaying confirmation.
	FalseAlarmSilenceMs int
}

// DefaultConfig returns the reference configuration for 16 kHz capture.
func DefaultConfig() Config {
	return Config{
		SampleRate:          16000,
		SpeechThreshold:     DefaultSpeechThreshold,
		SilenceThreshold:    DefaultSilenceThreshold,
		SilenceDurationMs:   DefaultSilenceMs,
		MinSpeechDurationMs: DefaultMinSpeechMs,
		MaxSpeechDurationMs: DefaultMaxSpeechMs,
		EnergySmoothing:     DefaultEnergySmoothing,
		PrePaddingMs:        DefaultPrePaddingMs,
		PostPaddingMs:       DefaultPostPaddingMs,
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all violations found.
func (cfg Config) Validate() error {
	var errs []error

	if cfg.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("vad: sample_rate %d must be > 0", cfg.SampleRate))
	}
	if cfg.SpeechThreshold <= 0 {
		errs = append(errs, fmt.Errorf("vad: speech_threshold %g must be > 0", cfg.SpeechThreshold))
	}
	if cfg.SilenceThreshold <= 0 {
		errs = append(errs, fmt.Errorf("vad: silence_threshold %g must be > 0", cfg.SilenceThreshold))
	}
	if cfg.SilenceThreshold > cfg.SpeechThreshold {
		errs = append(errs, fmt.Errorf("vad: silence_threshold %g must be ≤ speech_threshold %g",
			cfg.SilenceThreshold, cfg.SpeechThreshold))
	}
	if cfg.SilenceDurationMs <= 0 {
		errs = append(errs, fmt.Errorf("vad: silence_duration_ms %d must be > 0", cfg.SilenceDurationMs))
	}
	if cfg.MinSpeechDurationMs <= 0 {
		errs = append(errs, fmt.Errorf("vad: min_speech_duration_ms %d must be > 0", cfg.MinSpeechDurationMs))
	}
	if cfg.MaxSpeechDurationMs <= 0 {
		errs = append(errs, fmt.Errorf("vad: max_speech_duration_ms %d must be > 0", cfg.MaxSpeechDurationMs))
	}
	if cfg.EnergySmoothing < 0 || cfg.EnergySmoothing > 1 {
		errs = append(errs, fmt.Errorf("vad: energy_smoothing %g is out of range [0, 1]", cfg.EnergySmoothing))
	}
	if cfg.PrePaddingMs <= 0 {
		errs = append(errs, fmt.Errorf("vad: pre_padding_ms %d must be > 0", cfg.PrePaddingMs))
	}
	if cfg.PostPaddingMs <= 0 {
		errs = append(errs, fmt.Errorf("vad: post_padding_ms %d must be > 0", cfg.PostPaddingMs))
	}
	if cfg.FalseAlarmSilenceMs < 0 {
		errs = append(errs, fmt.Errorf("vad: false_alarm_silence_ms %d must be ≥ 0", cfg.FalseAlarmSilenceMs))
	}

	return errors.Join(errs...)
}

// falseAlarmSilenceMs resolves the effective false-alarm silence window.
func (cfg Config) falseAlarmSilenceMs() int {
	if cfg.FalseAlarmSilenceMs > 0 {
		return cfg.FalseAlarmSilenceMs
	}
	return cfg.SilenceDurationMs / 2
}

// samples converts a duration in milliseconds to a sample count at the
// configured rate.
func (cfg Config) samples(ms int) int {
	return cfg.SampleRate * ms / 1000
}
