// Command auricle runs the dictation core: it streams audio blocks through
// voice activity detection, transcribes detected speech segments, and prints
// the growing transcript.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/auricle/internal/config"
	"github.com/MrWong99/auricle/internal/health"
	"github.com/MrWong99/auricle/internal/observe"
	"github.com/MrWong99/auricle/internal/pipeline"
	"github.com/MrWong99/auricle/internal/resilience"
	"github.com/MrWong99/auricle/internal/server"
	"github.com/MrWong99/auricle/internal/transcript"
	"github.com/MrWong99/auricle/pkg/asr"
	"github.com/MrWong99/auricle/pkg/audio"
)

// version is stamped at build time via -ldflags.
var version = "dev"

const (
	defaultSampleRate = 16000
	defaultBlockSize  = 128
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "auricle.yaml", "path to the YAML configuration file")
	inputPath := flag.String("input", "-", "WAV file to transcribe, or '-' for raw 16-bit PCM on stdin")
	realtime := flag.Bool("realtime", false, "pace file input at the live block cadence instead of as fast as possible")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "auricle: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "auricle: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel.Level()}))
	slog.SetDefault(logger)

	sampleRate := cfg.Audio.SampleRate
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	blockSize := cfg.Audio.BlockSize
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}

	slog.Info("auricle starting",
		"version", version,
		"config", *configPath,
		"input", *inputPath,
		"sample_rate", sampleRate,
		"block_size", blockSize,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "auricle",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Transcription backend ─────────────────────────────────────────────────
	backend, closeBackend, err := buildBackend(cfg)
	if err != nil {
		slog.Error("failed to build backend", "err", err)
		return 1
	}
	defer closeBackend()

	guarded := resilience.NewGuardedBackend(backend, resilience.CircuitBreakerConfig{
		Name:         "asr-backend",
		MaxFailures:  cfg.Backend.Breaker.MaxFailures,
		ResetTimeout: time.Duration(cfg.Backend.Breaker.ResetTimeoutMs) * time.Millisecond,
		HalfOpenMax:  cfg.Backend.Breaker.HalfOpenMax,
	})

	if err := guarded.Ready(ctx); err != nil {
		slog.Warn("backend not ready yet; jobs will fail until it comes up", "err", err)
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	asmOpts := []transcript.AssemblerOption{}
	if cfg.Transcript.OverlapWindow > 0 {
		asmOpts = append(asmOpts, transcript.WithOverlapWindow(cfg.Transcript.OverlapWindow))
	}
	if len(cfg.Transcript.Vocabulary) > 0 {
		corrOpts := []transcript.CorrectorOption{}
		if cfg.Transcript.MaxCorrectionDistance > 0 {
			corrOpts = append(corrOpts, transcript.WithMaxDistance(cfg.Transcript.MaxCorrectionDistance))
		}
		asmOpts = append(asmOpts, transcript.WithCorrector(
			transcript.NewCorrector(cfg.Transcript.Vocabulary, corrOpts...)))
	}

	pipeOpts := []pipeline.Option{
		pipeline.WithAssembler(transcript.NewAssembler(asmOpts...)),
		pipeline.WithJobTimeout(cfg.Backend.RequestTimeout()),
	}
	if cfg.Dispatch.QueueSize > 0 {
		pipeOpts = append(pipeOpts, pipeline.WithQueueSize(cfg.Dispatch.QueueSize))
	}

	p, err := pipeline.New(cfg.VAD.Detector(sampleRate), guarded, pipeOpts...)
	if err != nil {
		slog.Error("failed to build pipeline", "err", err)
		return 1
	}

	// ── Diagnostics server (optional) ─────────────────────────────────────────
	var srv *server.Server
	if cfg.Server.ListenAddr != "" {
		srv = server.New(cfg.Server.ListenAddr, health.New(
			health.Backend("backend", guarded),
		))
		slog.Info("diagnostics server listening", "addr", cfg.Server.ListenAddr)
	}

	p.OnSegmentReady(func(wav []byte) {
		if srv != nil {
			srv.PublishSegment(len(wav))
		}
	})
	p.OnTranscriptUpdated(func(text string) {
		fmt.Println(text)
		if srv != nil {
			srv.PublishTranscript(text)
		}
	})

	// ── Run ───────────────────────────────────────────────────────────────────
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	if srv != nil {
		g.Go(func() error { return srv.Run(runCtx) })
	}
	g.Go(func() error {
		// The dispatch context gets its own lifetime: closing the pipeline,
		// not cancellation, is what ends it, so the last job can finish.
		return p.Run(context.Background())
	})
	g.Go(func() error {
		defer cancel()
		defer p.Close()
		return feedInput(runCtx, p, *inputPath, sampleRate, blockSize, *realtime)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	if text := p.Transcript(); text != "" {
		slog.Info("final transcript", "chars", len(text))
		fmt.Println(text)
	}
	slog.Info("goodbye")
	return 0
}

// buildBackend constructs the configured asr.Backend. The returned close
// function releases backend resources (a no-op for the HTTP backend).
func buildBackend(cfg *config.Config) (asr.Backend, func(), error) {
	noop := func() {}
	switch cfg.Backend.Kind {
	case config.BackendNative:
		var opts []asr.NativeOption
		if cfg.Backend.Language != "" {
			opts = append(opts, asr.WithNativeLanguage(cfg.Backend.Language))
		}
		n, err := asr.NewNative(cfg.Backend.ModelPath, opts...)
		if err != nil {
			return nil, noop, err
		}
		return n, func() {
			if err := n.Close(); err != nil {
				slog.Warn("backend close error", "err", err)
			}
		}, nil

	case config.BackendServer, "":
		url := cfg.Backend.ServerURL
		if url == "" {
			return nil, noop, errors.New("backend.server_url is not configured")
		}
		opts := []asr.ServerOption{
			asr.WithRequestTimeout(cfg.Backend.RequestTimeout()),
		}
		if cfg.Backend.Model != "" {
			opts = append(opts, asr.WithModel(cfg.Backend.Model))
		}
		if cfg.Backend.Language != "" {
			opts = append(opts, asr.WithLanguage(cfg.Backend.Language))
		}
		s, err := asr.NewServer(url, opts...)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown backend kind %q", cfg.Backend.Kind)
	}
}

// feedInput streams the input source through the pipeline in block-sized
// chunks. It returns nil on EOF and ctx.Err() when cancelled.
func feedInput(ctx context.Context, p *pipeline.Pipeline, path string, sampleRate, blockSize int, realtime bool) error {
	if path == "-" {
		return feedPCM(ctx, p, os.Stdin, sampleRate, blockSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read input %q: %w", path, err)
	}
	block, err := audio.DecodeWAV(data)
	if err != nil {
		return fmt.Errorf("decode input %q: %w", path, err)
	}
	if block.SampleRate != sampleRate {
		return fmt.Errorf("input sample rate %d does not match configured %d", block.SampleRate, sampleRate)
	}

	blockPeriod := time.Duration(blockSize) * time.Second / time.Duration(sampleRate)
	var ticker *time.Ticker
	if realtime {
		ticker = time.NewTicker(blockPeriod)
		defer ticker.Stop()
	}

	samples := block.Samples
	for start := 0; start < len(samples); start += blockSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ticker != nil {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		end := start + blockSize
		if end > len(samples) {
			end = len(samples)
		}
		p.ProcessBlock(audio.Block{Samples: samples[start:end], SampleRate: sampleRate})
	}
	return nil
}

// feedPCM reads raw little-endian 16-bit mono PCM from r until EOF. The read
// itself runs on its own goroutine so cancellation interrupts a quiet stream
// immediately instead of waiting for the next chunk to arrive.
func feedPCM(ctx context.Context, p *pipeline.Pipeline, r io.Reader, sampleRate, blockSize int) error {
	type chunk struct {
		data []byte
		err  error
	}
	chunks := make(chan chunk)
	go func() {
		defer close(chunks)
		for {
			buf := make([]byte, blockSize*2)
			n, err := io.ReadFull(r, buf)
			select {
			case chunks <- chunk{data: buf[:n], err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			// The reader goroutine exits after its in-flight read returns.
			return ctx.Err()
		case c, ok := <-chunks:
			if !ok {
				return nil
			}
			if len(c.data) > 0 {
				// Drop a trailing odd byte; a half sample is unusable.
				samples := audio.DecodePCM16(c.data[:len(c.data)&^1])
				p.ProcessBlock(audio.Block{Samples: samples, SampleRate: sampleRate})
			}
			if errors.Is(c.err, io.EOF) || errors.Is(c.err, io.ErrUnexpectedEOF) {
				return nil
			}
			if c.err != nil {
				return fmt.Errorf("read stdin: %w", c.err)
			}
		}
	}
}
