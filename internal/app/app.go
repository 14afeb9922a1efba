// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/pressmill/pressmill/internal/acquire"
	"github.com/pressmill/pressmill/internal/batch"
	"github.com/pressmill/pressmill/internal/cache"
	"github.com/pressmill/pressmill/internal/config"
	"github.com/pressmill/pressmill/internal/dataset"
	"github.com/pressmill/pressmill/internal/extract"
	"github.com/pressmill/pressmill/internal/fetcher/direct"
	"github.com/pressmill/pressmill/internal/fetcher/headless"
	"github.com/pressmill/pressmill/internal/logging"
	"github.com/pressmill/pressmill/internal/metrics"
	"github.com/pressmill/pressmill/internal/pipeline"
	"github.com/pressmill/pressmill/internal/pool"
	"github.com/pressmill/pressmill/internal/store"
	"github.com/pressmill/pressmill/internal/worker"
)

// App holds the shared services: logger, pools, cache, snapshot store, the
// row processor and the batch orchestrator. Initialized once at startup.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	rowPool    *pool.Pool
	renderer   *headless.Renderer
	pgStore    *store.PostgresStore
	snapshots  store.SnapshotStore
	processor  *worker.Processor
	stages     *batch.Orchestrator
	metricsSrv *http.Server
}

// New wires all services from configuration. It fails fast if any critical
// service cannot be initialized.
func New(ctx context.Context, cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics listener stopped", zap.Error(err))
			}
		}()
		logger.Info("metrics exposed", zap.String("addr", cfg.Metrics.Addr))
	}

	contentCache, err := cache.New(cfg.Cache.Dir, logger)
	if err != nil {
		return nil, err
	}

	rowPool := pool.New(cfg.Pools.Rows)
	renderPool := pool.New(cfg.Pools.Render)
	subPool := pool.New(cfg.Pools.Subprocess)

	fetcher := direct.New(direct.Config{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTP.Timeout(),
	})

	var (
		renderer  *headless.Renderer
		acqRender acquire.Renderer
	)
	if cfg.Render.Enabled {
		renderer, err = headless.New(headless.Config{
			UserAgent:         cfg.HTTP.UserAgent,
			NavigationTimeout: cfg.Render.NavTimeout(),
		}, renderPool)
		if err != nil {
			return nil, fmt.Errorf("init renderer: %w", err)
		}
		acqRender = renderer
	}

	acquirer := acquire.New(acquire.Config{
		MaxAttempts:   cfg.HTTP.MaxAttempts,
		BackoffBase:   cfg.HTTP.BackoffBase(),
		RenderEnabled: cfg.Render.Enabled,
	}, fetcher, acqRender, logger)

	runner := extract.ExecRunner{
		Command: cfg.Subprocess.Command,
		Args:    cfg.Subprocess.Args,
	}
	waterfall := extract.NewWaterfall(extract.DefaultStrategies(runner, subPool), logger)

	processor := worker.New(contentCache, acquirer, waterfall, logger)

	var (
		snapshots store.SnapshotStore
		pgStore   *store.PostgresStore
	)
	if cfg.Store.DSN != "" {
		pgStore, err = store.NewPostgresStore(ctx, store.PostgresConfig{DSN: cfg.Store.DSN})
		if err != nil {
			return nil, err
		}
		snapshots = pgStore
		logger.Info("using postgres snapshot store")
	} else {
		snapshots, err = store.NewFileStore(cfg.Store.Dir)
		if err != nil {
			return nil, err
		}
		logger.Info("using file snapshot store", zap.String("dir", cfg.Store.Dir))
	}

	// A missing API key leaves the client nil; extraction still works and
	// only the batch stages refuse to run.
	var client batch.Client
	if cfg.OpenAI.APIKey != "" {
		client = batch.NewOpenAI(cfg.OpenAI.APIKey)
	} else {
		logger.Warn("openai api key not configured; batch stages will fail")
	}
	stages := batch.New(client, batch.Config{
		PollInterval: cfg.OpenAI.PollInterval(),
		PollCeiling:  cfg.OpenAI.PollCeiling(),
		StageRetries: cfg.OpenAI.StageRetries,
		RetryBackoff: cfg.OpenAI.RetryBackoff(),
	}, snapshots.Save, logger)

	return &App{
		cfg:        cfg,
		logger:     logger,
		rowPool:    rowPool,
		renderer:   renderer,
		pgStore:    pgStore,
		snapshots:  snapshots,
		processor:  processor,
		stages:     stages,
		metricsSrv: metricsSrv,
	}, nil
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Snapshots returns the snapshot store.
func (a *App) Snapshots() store.SnapshotStore { return a.snapshots }

// NewMachine builds a pipeline machine around a dataset.
func (a *App) NewMachine(ds *dataset.Dataset) *pipeline.Machine {
	return pipeline.New(ds, a.processor, a.rowPool, a.stages, a.snapshots, a.cfg.OpenAI.Model, a.logger)
}

// LoadMachine restores a dataset snapshot and wraps it in a machine.
func (a *App) LoadMachine(ctx context.Context, id string) (*pipeline.Machine, error) {
	ds, err := a.snapshots.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.NewMachine(ds), nil
}

// Close shuts services down gracefully.
func (a *App) Close() {
	if a.metricsSrv != nil {
		_ = a.metricsSrv.Close()
	}
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.pgStore != nil {
		a.pgStore.Close()
	}
	_ = a.logger.Sync()
}
