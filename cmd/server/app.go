package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/coach-api/internal/api"
	"github.com/phrazzld/coach-api/internal/config"
	"github.com/phrazzld/coach-api/internal/diagnostics"
	"github.com/phrazzld/coach-api/internal/events"
	"github.com/phrazzld/coach-api/internal/generation"
	"github.com/phrazzld/coach-api/internal/prompt"
	"github.com/phrazzld/coach-api/internal/retry"
	"github.com/phrazzld/coach-api/internal/service"
	"github.com/phrazzld/coach-api/internal/service/auth"
	"github.com/phrazzld/coach-api/internal/task"
)

// evictInterval is how often stale cache entries are dropped.
const evictInterval = 5 * time.Minute

// application holds the shared dependencies and owns their shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	recorder *diagnostics.Recorder
	plans    *service.PlanService
	tokens   *auth.TokenService // nil when auth is disabled

	emitter *events.InMemoryEventEmitter
	queue   *task.TaskQueue
	pool    *task.WorkerPool
}

// newApplication wires the generation pipeline around provider. Background
// workers are created but not started; Run starts them.
func newApplication(cfg *config.Config, logger *slog.Logger, provider generation.Provider) (*application, error) {
	app := &application{
		config:   cfg,
		logger:   logger,
		recorder: diagnostics.NewRecorder(logger),
	}

	coordinator, err := retry.NewCoordinator(provider, app.recorder, logger, retry.Config{
		MaxAttempts:   cfg.Generation.MaxAttempts,
		SnippetLength: cfg.Generation.SnippetLength,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create retry coordinator: %w", err)
	}

	prompts, err := prompt.NewBuilder(cfg.LLM.PromptTemplateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.queue = task.NewTaskQueue(cfg.Worker.QueueSize, logger)
	app.pool = task.NewWorkerPool(app.queue, task.WorkerPoolConfig{WorkerCount: cfg.Worker.Count}, logger)

	app.plans, err = service.NewPlanService(coordinator, prompts, app.emitter, app.recorder, logger, service.Config{
		CacheTTL:          cfg.Generation.CacheTTL(),
		OperationDeadline: cfg.Generation.OperationDeadline(),
		PrefetchWeeks:     cfg.Generation.PrefetchWeeks,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create plan service: %w", err)
	}
	app.emitter.RegisterHandler(task.NewPrefetchEventHandler(app.queue, app.plans, logger))

	if cfg.Auth.JWTSecret != "" {
		app.tokens, err = auth.NewTokenService(cfg.Auth)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize token service: %w", err)
		}
		logger.Info("bearer token authentication enabled",
			"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)
	}

	logger.Info("application initialized",
		"max_attempts", cfg.Generation.MaxAttempts,
		"cache_ttl", cfg.Generation.CacheTTL(),
		"prefetch_weeks", cfg.Generation.PrefetchWeeks,
		"workers", cfg.Worker.Count)
	return app, nil
}

// Run starts the workers, the cache janitor and the HTTP server, and blocks
// until ctx is done and shutdown has finished.
func (app *application) Run(ctx context.Context) error {
	app.pool.Start()
	go app.evictLoop(ctx)

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (app *application) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := app.plans.EvictExpired(); n > 0 {
				app.logger.Debug("evicted stale cache entries", "count", n)
			}
		}
	}
}

func (app *application) workerStats() api.WorkerCounters {
	completed, failed := app.pool.Stats()
	return api.WorkerCounters{Completed: completed, Failed: failed, Queued: app.queue.Len()}
}

// cleanup stops accepting background work and waits for the workers.
func (app *application) cleanup() {
	app.queue.Close()
	app.pool.Stop()
	app.logger.Info("application shutdown completed")
}
