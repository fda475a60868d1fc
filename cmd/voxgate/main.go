// Command voxgate is the main entry point for the Voxgate voice streaming
// gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/voxhaven/voxgate/internal/auth"
	"github.com/voxhaven/voxgate/internal/config"
	"github.com/voxhaven/voxgate/internal/observe"
	"github.com/voxhaven/voxgate/internal/registry"
	"github.com/voxhaven/voxgate/internal/server"
	"github.com/voxhaven/voxgate/pkg/provider/stt"
	"github.com/voxhaven/voxgate/pkg/provider/stt/deepgram"
	"github.com/voxhaven/voxgate/pkg/provider/tts"
	"github.com/voxhaven/voxgate/pkg/provider/tts/elevenlabs"
	"github.com/voxhaven/voxgate/pkg/provider/tts/polly"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxgate: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxgate: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voxgate starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "voxgate",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret)
	if err != nil {
		slog.Error("failed to initialise token verification", "err", err)
		return 1
	}

	sttProvider, err := buildSTT(cfg.Providers.STT)
	if err != nil {
		slog.Error("failed to build stt provider", "err", err)
		return 1
	}
	slog.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name)

	ttsProvider, voiceID, engine, err := buildTTS(ctx, cfg.Providers.TTS)
	if err != nil {
		slog.Error("failed to build tts provider", "err", err)
		return 1
	}
	slog.Info("provider created", "kind", "tts", "name", cfg.Providers.TTS.Name)

	printStartupSummary(cfg)

	srvCfg := server.Config{
		ListenAddr: cfg.Server.ListenAddr,
		Stream: stt.StreamConfig{
			Language:   cfg.Providers.STT.Language,
			SampleRate: cfg.Providers.STT.SampleRate,
			Encoding:   cfg.Providers.STT.Encoding,
		},
		VoiceID:       voiceID,
		Engine:        engine,
		OutputFormat:  cfg.Providers.TTS.OutputFormat,
		QueueCapacity: cfg.Session.QueueCapacity,
		DrainTimeout:  cfg.Session.DrainTimeout.Std(),
	}
	if cfg.Server.TLS != nil {
		srvCfg.TLSCertFile = cfg.Server.TLS.CertFile
		srvCfg.TLSKeyFile = cfg.Server.TLS.KeyFile
	}

	srv := server.New(srvCfg, server.Deps{
		Verifier: verifier,
		Registry: registry.New(),
		Metrics:  observe.DefaultMetrics(),
		STT:      sttProvider,
		TTS:      ttsProvider,
		Logger:   logger,
	})

	slog.Info("server ready, press Ctrl+C to shut down")

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping")
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return 0
}

// buildSTT instantiates the recognizer named in cfg.
func buildSTT(cfg config.STTConfig) (stt.Provider, error) {
	switch cfg.Name {
	case "deepgram":
		var opts []deepgram.Option
		if cfg.Model != "" {
			opts = append(opts, deepgram.WithModel(cfg.Model))
		}
		if cfg.Language != "" {
			opts = append(opts, deepgram.WithLanguage(cfg.Language))
		}
		if cfg.SampleRate > 0 {
			opts = append(opts, deepgram.WithSampleRate(cfg.SampleRate))
		}
		return deepgram.New(cfg.APIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown stt provider %q", cfg.Name)
	}
}

// buildTTS instantiates the synthesizer named in cfg and resolves the voice
// and engine to use per request, applying the configured preset's defaults
// where the config leaves them blank.
func buildTTS(ctx context.Context, cfg config.TTSConfig) (p tts.Provider, voiceID, engine string, err error) {
	voiceID = cfg.VoiceID
	engine = cfg.Engine

	switch cfg.Name {
	case "polly":
		preset := polly.LookupPreset(cfg.Preset)
		if voiceID == "" {
			voiceID = preset.VoiceID
		}
		if engine == "" {
			engine = preset.Engine
		}

		var awsOpts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			awsOpts = append(awsOpts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
		if err != nil {
			return nil, "", "", fmt.Errorf("load aws config: %w", err)
		}

		var opts []polly.Option
		opts = append(opts, polly.WithProsody(preset.Rate, preset.Emphasis))
		if voiceID != "" {
			opts = append(opts, polly.WithVoiceID(voiceID))
		}
		if engine != "" {
			opts = append(opts, polly.WithEngine(engine))
		}
		if cfg.OutputFormat != "" {
			opts = append(opts, polly.WithOutputFormat(cfg.OutputFormat))
		}
		return polly.New(awsCfg, opts...), voiceID, engine, nil

	case "elevenlabs":
		var opts []elevenlabs.Option
		if voiceID != "" {
			opts = append(opts, elevenlabs.WithVoiceID(voiceID))
		}
		if cfg.OutputFormat != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(cfg.OutputFormat))
		}
		p, err := elevenlabs.New(cfg.APIKey, opts...)
		if err != nil {
			return nil, "", "", err
		}
		return p, voiceID, engine, nil

	default:
		return nil, "", "", fmt.Errorf("unknown tts provider %q", cfg.Name)
	}
}

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         Voxgate startup summary       ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.VoiceID)
	if cfg.Server.TLS != nil {
		fmt.Printf("║  TLS          : %-22s ║\n", "enabled")
	} else {
		fmt.Printf("║  TLS          : %-22s ║\n", "(disabled)")
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr  : %-22s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, detail string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if detail != "" {
		value = name + " / " + detail
	}
	if len(value) > 22 {
		value = value[:19] + "…"
	}
	fmt.Printf("║  %-12s : %-22s ║\n", kind, value)
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
