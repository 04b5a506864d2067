package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"notepipe/internal/completion"
	"notepipe/internal/completion/claude"
	"notepipe/internal/completion/gemini"
	"notepipe/internal/completion/ollama"
	"notepipe/internal/completion/openai"
	"notepipe/internal/config"
	"notepipe/internal/domain"
	"notepipe/internal/imaging"
	"notepipe/internal/logger"
	"notepipe/internal/notes"
	noopnotify "notepipe/internal/notify/noop"
	sesnotify "notepipe/internal/notify/ses"
	"notepipe/internal/port"
	"notepipe/internal/raster"
	"notepipe/internal/service"
	"notepipe/internal/storage/graph"
	s3storage "notepipe/internal/storage/s3"
)

// loadConfig reads and validates configuration and builds the logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, log, nil
}

func registerProviders() {
	completion.RegisterProvider("openai", func(cfg *config.CompletionConfig) (port.Completer, error) {
		return openai.NewCompleter(cfg), nil
	})
	completion.RegisterProvider("claude", func(cfg *config.CompletionConfig) (port.Completer, error) {
		return claude.NewCompleter(cfg), nil
	})
	completion.RegisterProvider("gemini", func(cfg *config.CompletionConfig) (port.Completer, error) {
		c, err := gemini.NewCompleter(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
	completion.RegisterProvider("ollama", func(cfg *config.CompletionConfig) (port.Completer, error) {
		c, err := ollama.NewCompleter(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

func newFileStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (port.FileStore, error) {
	switch cfg.Storage.Provider {
	case "graph":
		client, err := graph.NewClient(ctx, cfg.Graph, log.Named("graph"))
		if err != nil {
			return nil, err
		}
		return client, nil
	case "s3":
		store, err := s3storage.NewStore(ctx, cfg.S3, log.Named("s3"))
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Storage.Provider)
	}
}

func newNotifier(ctx context.Context, cfg *config.Config, log *zap.Logger) (port.RunNotifier, error) {
	switch cfg.Notify.Provider {
	case "ses":
		n, err := sesnotify.NewNotifier(ctx, cfg.Notify, log.Named("notify"))
		if err != nil {
			return nil, err
		}
		return n, nil
	case "noop", "":
		return noopnotify.NewNotifier(log.Named("notify")), nil
	default:
		return nil, fmt.Errorf("unknown notify provider: %s", cfg.Notify.Provider)
	}
}

// buildPipeline wires the configured providers into a PipelineService.
func buildPipeline(ctx context.Context, cfg *config.Config, log *zap.Logger, dryRun bool) (service.PipelineService, error) {
	registerProviders()
	completer, err := completion.NewCompleter(&cfg.Completion)
	if err != nil {
		return nil, err
	}
	log.Info("completion provider ready",
		zap.String("provider", cfg.Completion.Provider),
		zap.String("model", completer.Model()))

	store, err := newFileStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	notifier, err := newNotifier(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notifier: %w", err)
	}

	vision := cfg.Completion.VisionTemperature
	text := cfg.Completion.TextTemperature
	stageLog := log.Named("notes")
	stages := service.Stages{
		Classifier: notes.NewClassifier(completer, vision, stageLog),
		Extractor:  notes.NewExtractor(completer, vision, stageLog),
		Refiner:    notes.NewRefiner(completer, text, stageLog),
		Titler:     notes.NewTitler(completer, text, cfg.Pipeline.TitleMaxLength, stageLog),
		Assembler:  notes.NewAssembler(nil, domain.LinkStyle(cfg.Pipeline.LinkStyle)),
	}

	return service.NewPipelineService(
		store,
		raster.NewPDFRasterizer(newPageRenderer(cfg), log.Named("raster")),
		stages,
		notifier,
		service.PipelineConfig{
			SourceFolder:         cfg.Storage.SourceFolder,
			DestFolder:           cfg.Storage.DestFolder,
			ProcessedFolder:      cfg.Storage.ProcessedFolder,
			SkipAlreadyProcessed: cfg.Pipeline.SkipAlreadyProcessed,
			MaxFiles:             cfg.Pipeline.MaxFiles,
			StorageTimeout:       cfg.Storage.Timeout(),
			MaxImageDimension:    imaging.DefaultMaxDimension,
			DryRun:               dryRun,
		},
		nil,
		log.Named("pipeline"),
	), nil
}

func newPageRenderer(cfg *config.Config) raster.PageRenderer {
	if cfg.PDF.Renderer == "embedded" {
		return nil
	}
	return raster.NewMagickRenderer(cfg.PDF.DPI)
}
