package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alkime/docvoice/internal/config"
	"github.com/alkime/docvoice/internal/keyring"
	"github.com/alkime/docvoice/internal/logger"
	"github.com/alkime/docvoice/internal/server"
	"github.com/alkime/docvoice/internal/speech"
	"github.com/alkime/docvoice/internal/storage"
	"github.com/alkime/docvoice/internal/summarize"
	"google.golang.org/api/option"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.SetupLogger(cfg)

	logger.Info("Starting docvoice server",
		"env", cfg.Env,
		"port", cfg.Port,
		"storage_mode", cfg.StorageMode,
		"summary_provider", cfg.SummaryProvider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	openAIKey := keyring.Resolve(keyring.OpenAI, cfg.OpenAIAPIKey)

	synth, err := speech.NewOpenAI(openAIKey, cfg.TTSModel, cfg.TTSVoice)
	if err != nil {
		return err
	}

	summarizer, closeSummarizer, err := newSummarizer(ctx, cfg, openAIKey)
	if err != nil {
		return err
	}
	defer closeSummarizer()

	store, err := storage.FromConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close audio storage", "error", err)
		}
	}()

	srv := server.New(cfg, logger, server.Deps{
		Summarizer:  summarizer,
		Synthesizer: synth,
		Store:       store,
	})

	return server.Run(ctx, srv)
}

func newSummarizer(ctx context.Context, cfg *config.Config, openAIKey string) (summarize.Summarizer, func(), error) {
	noop := func() {}

	switch cfg.SummaryProvider {
	case config.ProviderOpenAI:
		s, err := summarize.NewOpenAI(openAIKey, cfg.SummaryModel, cfg.SummaryWords)
		return s, noop, err

	case config.ProviderAnthropic:
		key := keyring.Resolve(keyring.Anthropic, cfg.AnthropicAPIKey)
		s, err := summarize.NewAnthropic(key, cfg.SummaryModel, cfg.SummaryWords)
		return s, noop, err

	case config.ProviderVertex:
		var opts []option.ClientOption
		if cfg.GCPCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GCPCredentialsFile))
		}
		s, err := summarize.NewVertex(ctx, cfg.GCPProject, cfg.GCPRegion, cfg.SummaryModel, cfg.SummaryWords, opts...)
		if err != nil {
			return nil, noop, err
		}
		return s, closer(s), nil

	default:
		return nil, noop, fmt.Errorf("unknown SUMMARY_PROVIDER: %s", cfg.SummaryProvider)
	}
}

func closer(c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			slog.Warn("Failed to close summarizer", "error", err)
		}
	}
}
