// Package config provides the configuration schema, loader, and validation
// for the Auricle dictation core.
package config

import (
	"log/slog"
	"time"

	"github.com/MrWong99/auricle/pkg/vad"
)

// LogLevel controls log verbosity for the Auricle process.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to the corresponding [slog.Level]. Unrecognised or empty
// values map to [slog.LevelInfo].
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// BackendKind selects the transcription backend implementation.
type BackendKind string

const (
	// BackendServer talks to a running whisper-server over HTTP.
	BackendServer BackendKind = "server"

	// BackendNative runs whisper.cpp in-process via CGO.
	BackendNative BackendKind = "native"
)

// IsValid reports whether k is a recognised backend kind.
func (k BackendKind) IsValid() bool {
	return k == BackendServer || k == BackendNative
}

// Config is the root configuration structure for Auricle.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	LogLevel   LogLevel         `yaml:"log_level"`
	Audio      AudioConfig      `yaml:"audio"`
	VAD        VADConfig        `yaml:"vad"`
	Backend    BackendConfig    `yaml:"backend"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Server     ServerConfig     `yaml:"server"`
}

// AudioConfig describes the fixed input contract the capture layer upholds.
type AudioConfig struct {
	// SampleRate is the input sample rate in Hz. Default: 16000.
	SampleRate int `yaml:"sample_rate"`

	// BlockSize is the number of samples per input block. Default: 128.
	BlockSize int `yaml:"block_size"`
}

// VADConfig is the YAML mirror of [vad.Config]. Zero fields fall back to the
// reference defaults at load time.
type VADConfig struct {
	SpeechThreshold       float64 `yaml:"speech_threshold"`
	SilenceThreshold      float64 `yaml:"silence_threshold"`
	SilenceDurationMs     int     `yaml:"silence_duration_ms"`
	MinSpeechDurationMs   int     `yaml:"min_speech_duration_ms"`
	MaxSpeechDurationMs   int     `yaml:"max_speech_duration_ms"`
	EnergySmoothingFactor float64 `yaml:"energy_smoothing_factor"`
	PrePaddingMs          int     `yaml:"pre_padding_ms"`
	PostPaddingMs         int     `yaml:"post_padding_ms"`

	// FalseAlarmSilenceMs tunes the confirmation-phase discard rule.
	// 0 derives it as silence_duration_ms / 2.
	FalseAlarmSilenceMs int `yaml:"false_alarm_silence_ms"`
}

// BackendConfig selects and tunes the transcription backend.
type BackendConfig struct {
	// Kind selects the implementation. Default: "server".
	Kind BackendKind `yaml:"kind"`

	// ServerURL is the whisper-server base URL (kind "server").
	ServerURL string `yaml:"server_url"`

	// ModelPath is the whisper.cpp model file (kind "native").
	ModelPath string `yaml:"model_path"`

	// Model is the model identifier forwarded per request (kind "server").
	Model string `yaml:"model"`

	// Language is the BCP-47 language code for transcription. Default: "en".
	Language string `yaml:"language"`

	// RequestTimeoutMs bounds a single transcription request. Default: 30000.
	RequestTimeoutMs int `yaml:"request_timeout_ms"`

	// Breaker tunes the circuit breaker guarding the backend.
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit-breaker tuning knobs. Zero fields fall back to
// the breaker defaults.
type BreakerConfig struct {
	MaxFailures    int `yaml:"max_failures"`
	ResetTimeoutMs int `yaml:"reset_timeout_ms"`
	HalfOpenMax    int `yaml:"half_open_max"`
}

// DispatchConfig tunes the transcription job queue.
type DispatchConfig struct {
	// QueueSize is the number of segments that may wait for the single
	// in-flight backend request. Segments arriving at a full queue are
	// dropped. Default: 8.
	QueueSize int `yaml:"queue_size"`
}

// TranscriptConfig tunes transcript assembly.
type TranscriptConfig struct {
	// OverlapWindow is the number of trailing words retained for overlap
	// comparison. Default: 10.
	OverlapWindow int `yaml:"overlap_window"`

	// Vocabulary lists domain words that whisper commonly mishears. Incoming
	// words phonetically close to an entry are replaced by it. Empty
	// disables correction.
	Vocabulary []string `yaml:"vocabulary"`

	// MaxCorrectionDistance is the maximum edit distance for a vocabulary
	// substitution. Default: 2.
	MaxCorrectionDistance int `yaml:"max_correction_distance"`
}

// ServerConfig holds settings for the diagnostics HTTP server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8090").
	// Empty disables the server.
	ListenAddr string `yaml:"listen_addr"`
}

// RequestTimeout returns the backend request timeout as a [time.Duration],
// falling back to 30 s when unset.
func (b BackendConfig) RequestTimeout() time.Duration {
	if b.RequestTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.RequestTimeoutMs) * time.Millisecond
}

// Detector converts the YAML mirror into a [vad.Config] at the given sample
// rate, substituting the reference defaults for zero fields.
func (v VADConfig) Detector(sampleRate int) vad.Config {
	cfg := vad.DefaultConfig()
	if sampleRate > 0 {
		cfg.SampleRate = sampleRate
	}
	if v.SpeechThreshold > 0 {
		cfg.SpeechThreshold = v.SpeechThreshold
	}
	if v.SilenceThreshold > 0 {
		cfg.SilenceThreshold = v.SilenceThreshold
	}
	if v.SilenceDurationMs > 0 {
		cfg.SilenceDurationMs = v.SilenceDurationMs
	}
	if v.MinSpeechDurationMs > 0 {
		cfg.MinSpeechDurationMs = v.MinSpeechDurationMs
	}
	if v.MaxSpeechDurationMs > 0 {
		cfg.MaxSpeechDurationMs = v.MaxSpeechDurationMs
	}
	if v.EnergySmoothingFactor > 0 {
		cfg.EnergySmoothing = v.EnergySmoothingFactor
	}
	if v.PrePaddingMs > 0 {
		cfg.PrePaddingMs = v.PrePaddingMs
	}
	if v.PostPaddingMs > 0 {
		cfg.PostPaddingMs = v.PostPaddingMs
	}
	if v.FalseAlarmSilenceMs > 0 {
		cfg.FalseAlarmSilenceMs = v.FalseAlarmSilenceMs
	}
	return cfg
}
