package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Audio
	if cfg.Audio.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must not be negative", cfg.Audio.SampleRate))
	}
	if cfg.Audio.BlockSize < 0 {
		errs = append(errs, fmt.Errorf("audio.block_size %d must not be negative", cfg.Audio.BlockSize))
	}

	// VAD — delegate to the detector's own validation after defaulting.
	if err := cfg.VAD.Detector(cfg.Audio.SampleRate).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("vad: %w", err))
	}
	if cfg.VAD.MinSpeechDurationMs > 0 && cfg.VAD.MaxSpeechDurationMs > 0 &&
		cfg.VAD.MinSpeechDurationMs >= cfg.VAD.MaxSpeechDurationMs {
		errs = append(errs, fmt.Errorf("vad.min_speech_duration_ms %d must be below vad.max_speech_duration_ms %d",
			cfg.VAD.MinSpeechDurationMs, cfg.VAD.MaxSpeechDurationMs))
	}

	// Backend
	if cfg.Backend.Kind != "" && !cfg.Backend.Kind.IsValid() {
		errs = append(errs, fmt.Errorf("backend.kind %q is invalid; valid values: server, native", cfg.Backend.Kind))
	}
	switch cfg.Backend.Kind {
	case BackendServer:
		if cfg.Backend.ServerURL == "" {
			errs = append(errs, errors.New(`backend.server_url is required when backend.kind is "server"`))
		}
	case BackendNative:
		if cfg.Backend.ModelPath == "" {
			errs = append(errs, errors.New(`backend.model_path is required when backend.kind is "native"`))
		}
		if cfg.Backend.Model != "" {
			slog.Warn("backend.model is ignored for the native backend; the model comes from backend.model_path")
		}
	}
	if cfg.Backend.RequestTimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("backend.request_timeout_ms %d must not be negative", cfg.Backend.RequestTimeoutMs))
	}

	// Dispatch
	if cfg.Dispatch.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("dispatch.queue_size %d must not be negative", cfg.Dispatch.QueueSize))
	}

	// Transcript
	if cfg.Transcript.OverlapWindow < 0 {
		errs = append(errs, fmt.Errorf("transcript.overlap_window %d must not be negative", cfg.Transcript.OverlapWindow))
	}
	if cfg.Transcript.MaxCorrectionDistance < 0 {
		errs = append(errs, fmt.Errorf("transcript.max_correction_distance %d must not be negative", cfg.Transcript.MaxCorrectionDistance))
	}
	if len(cfg.Transcript.Vocabulary) > 0 && cfg.Transcript.MaxCorrectionDistance > 4 {
		slog.Warn("transcript.max_correction_distance is large; corrections may replace unrelated words",
			"distance", cfg.Transcript.MaxCorrectionDistance)
	}

	return errors.Join(errs...)
}
