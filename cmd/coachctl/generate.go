package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/coach-api/internal/config"
	"github.com/phrazzld/coach-api/internal/diagnostics"
	"github.com/phrazzld/coach-api/internal/domain"
	"github.com/phrazzld/coach-api/internal/platform/logger"
	"github.com/phrazzld/coach-api/internal/prompt"
	"github.com/phrazzld/coach-api/internal/retry"
	"github.com/phrazzld/coach-api/internal/service"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type generateOptions struct {
	configPath  string
	profilePath string
	op          string
	week        int
	locale      string
	message     string
}

// newGenerateCmd runs a single generation through the full service path and
// prints the response envelope as JSON.
func newGenerateCmd(providers providerFactory) *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one payload for a profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, providers, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a config.yaml (defaults to ./config.yaml if present)")
	flags.StringVar(&opts.profilePath, "profile", "", "Path to a YAML athlete profile")
	flags.StringVar(&opts.op, "op", string(domain.OperationBundle), "Operation: training, nutrition, sleep, chat or bundle")
	flags.IntVar(&opts.week, "week", 0, "Zero-based week index")
	flags.StringVar(&opts.locale, "locale", "en", "Output locale")
	flags.StringVar(&opts.message, "message", "", "User message for the chat operation")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func runGenerate(cmd *cobra.Command, providers providerFactory, opts generateOptions) error {
	op := domain.Operation(opts.op)
	if !op.Valid() {
		return fmt.Errorf("unknown operation %q", opts.op)
	}

	profile, err := loadProfile(opts.profilePath)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	l := logger.New(cmd.ErrOrStderr(), cfg.Server.LogLevel)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	plans, err := buildPlanService(ctx, providers, cfg, l)
	if err != nil {
		return err
	}

	req := domain.GenerationRequest{
		Operation: op,
		Profile:   profile,
		WeekIndex: opts.week,
		Locale:    opts.locale,
		Message:   opts.message,
	}
	start := time.Now()
	result, err := dispatch(ctx, plans, req)
	if err != nil {
		return err
	}
	l.Debug("generation finished", "operation", op, "duration_ms", time.Since(start).Milliseconds())

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func loadProfile(path string) (domain.Profile, error) {
	var profile domain.Profile
	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("failed to read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	if err := validator.New().Struct(profile); err != nil {
		return profile, fmt.Errorf("invalid profile: %w", err)
	}
	return profile, nil
}

// buildPlanService mirrors the server wiring without background prefetch.
func buildPlanService(ctx context.Context, providers providerFactory, cfg *config.Config, l *slog.Logger) (*service.PlanService, error) {
	provider, err := providers(ctx, l.With("component", "gemini_provider"), cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	coordinator, err := retry.NewCoordinator(provider, diagnostics.NewRecorder(l), l, retry.Config{
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
	return service.NewPlanService(coordinator, prompts, nil, nil, l, service.Config{
		CacheTTL:          cfg.Generation.CacheTTL(),
		OperationDeadline: cfg.Generation.OperationDeadline(),
	})
}

func dispatch(ctx context.Context, plans *service.PlanService, req domain.GenerationRequest) (any, error) {
	switch req.Operation {
	case domain.OperationTraining:
		return plans.Training(ctx, req)
	case domain.OperationNutrition:
		return plans.Nutrition(ctx, req)
	case domain.OperationSleep:
		return plans.Sleep(ctx, req)
	case domain.OperationChat:
		return plans.Chat(ctx, req)
	default:
		return plans.Bundle(ctx, req)
	}
}
