// Package main implements the entry point for the coach API server, which
// serves generated training, nutrition, sleep and chat payloads backed by
// Gemini with repair, retry, caching and deterministic fallbacks.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/coach-api/internal/config"
	"github.com/phrazzld/coach-api/internal/platform/gemini"
	"github.com/phrazzld/coach-api/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("coach-api: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	l.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"model", cfg.LLM.ModelName,
		"auth_enabled", cfg.Auth.JWTSecret != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := gemini.NewProvider(ctx, l.With("component", "gemini_provider"), cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM provider: %w", err)
	}

	app, err := newApplication(cfg, l, provider)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
