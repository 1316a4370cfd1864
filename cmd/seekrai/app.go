package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/seekrai/internal/analyzer"
	"github.com/jonathan/seekrai/internal/batch"
	"github.com/jonathan/seekrai/internal/cache"
	"github.com/jonathan/seekrai/internal/config"
	"github.com/jonathan/seekrai/internal/jobsource"
	"github.com/jonathan/seekrai/internal/llm"
	"github.com/jonathan/seekrai/internal/logger"
	"github.com/jonathan/seekrai/internal/pipeline"
	"github.com/jonathan/seekrai/internal/progress"
	"github.com/jonathan/seekrai/internal/redact"
)

// app bundles the assembled components shared by the subcommands.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	store    cache.Store
	client   llm.Client
	tracker  *progress.Tracker
	pipeline *pipeline.Pipeline

	closers []func()
}

// loadSettings resolves the effective configuration: file, then env, then
// defaults for whatever is still unset.
func loadSettings() (config.Config, error) {
	cfg := config.Config{}
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = *loaded
	}
	cfg.ApplyEnv()
	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newApp assembles the pipeline from configuration. withLLM is false for
// commands that only touch the cache.
func newApp(ctx context.Context, withLLM bool) (*app, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.JSONLog, cfg.Verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: log}
	a.closers = append(a.closers, func() { _ = log.Sync() })

	switch cfg.CacheBackend {
	case config.BackendRedis:
		store, err := cache.NewRedisStore(ctx, cfg.RedisURL, cfg.CacheTTL(), log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		a.store = store
		a.closers = append(a.closers, func() { _ = store.Close() })
	default:
		store, err := cache.NewFileStore(cfg.CacheDir, cfg.CacheTTL(), log)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache directory: %w", err)
		}
		a.store = store
	}

	if !withLLM {
		return a, nil
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.client = client
	a.closers = append(a.closers, func() { _ = client.Close() })

	a.tracker = progress.NewTracker(cfg.ProgressRetention(), log)
	a.closers = append(a.closers, a.tracker.Stop)

	source := jobsource.NewBoardSource(nil, log)
	engine := batch.New(client, a.store, log, batch.Options{
		BatchSize:   cfg.BatchSize,
		Concurrency: cfg.Concurrency,
		Delay:       cfg.RequestDelay(),
	})
	a.pipeline = pipeline.New(
		redact.New(cfg.ProfessionalDomains),
		analyzer.New(client, a.store, log),
		source,
		engine,
		a.tracker,
		cfg.BatchSize,
		log,
	)

	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
