// This file contains the Native backend implementation built on the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package asr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/auricle/pkg/audio"
)

// Compile-time assertion that Native satisfies Backend.
var _ Backend = (*Native)(nil)

// NativeOption is a functional option for configuring a [Native] backend.
type NativeOption func(*Native)

// WithNativeLanguage sets the BCP-47 language code for transcription
// (e.g., "en", "de", "fr"). Defaults to "en".
func WithNativeLanguage(lang string) NativeOption {
	return func(n *Native) { n.language = lang }
}

// Native is a [Backend] that runs whisper.cpp in-process via CGO, eliminating
// HTTP overhead entirely. The model is loaded once at construction; each
// Transcribe call creates a fresh whisper context (contexts are not
// thread-safe, the model is).
type Native struct {
	language string

	mu    sync.Mutex
	model whisperlib.Model
}

// NewNative creates a Native backend that loads the whisper.cpp model from
// the given file path. The caller must call Close when the backend is no
// longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*Native, error) {
	if modelPath == "" {
		return nil, errors.New("asr: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("asr: load model %q: %w", modelPath, err)
	}

	n := &Native{
		language: defaultServerLanguage,
		model:    model,
	}
	for _, o := range opts {
		o(n)
	}
	return n, nil
}

// Ready reports readiness. The model is loaded in NewNative, so a live
// backend is always ready; after Close it is not.
func (n *Native) Ready(_ context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.model == nil {
		return fmt.Errorf("%w: model closed", ErrBackendUnavailable)
	}
	return nil
}

// Close releases the whisper model. Calling Close more than once is safe.
func (n *Native) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.model == nil {
		return nil
	}
	err := n.model.Close()
	n.model = nil
	return err
}

// Transcribe decodes the WAV buffer back to float samples and runs
// whisper.cpp inference on them. Engine failures surface as [*BackendError].
func (n *Native) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	block, err := audio.DecodeWAV(wav)
	if err != nil {
		return "", &BackendError{Msg: err.Error()}
	}

	n.mu.Lock()
	model := n.model
	n.mu.Unlock()
	if model == nil {
		return "", fmt.Errorf("%w: model closed", ErrBackendUnavailable)
	}

	wctx, err := model.NewContext()
	if err != nil {
		return "", &BackendError{Msg: "create context: " + err.Error()}
	}
	if err := wctx.SetLanguage(n.language); err != nil {
		slog.Warn("asr: failed to set language, using default", "language", n.language, "error", err)
	}

	if err := wctx.Process(block.Samples, nil, nil, nil); err != nil {
		return "", &BackendError{Msg: "process audio: " + err.Error()}
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", &BackendError{Msg: "read segment: " + err.Error()}
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
