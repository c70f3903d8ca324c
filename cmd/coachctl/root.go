package main

import (
	"context"
	"log/slog"

	"github.com/phrazzld/coach-api/internal/config"
	"github.com/phrazzld/coach-api/internal/generation"
	"github.com/phrazzld/coach-api/internal/platform/gemini"
	"github.com/spf13/cobra"
)

// providerFactory builds the provider used by generate. Tests replace it.
type providerFactory func(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (generation.Provider, error)

func geminiProvider(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (generation.Provider, error) {
	return gemini.NewProvider(ctx, logger, cfg)
}

// newRootCmd wires the cobra tree.
func newRootCmd() *cobra.Command {
	return newRootCmdWith(geminiProvider)
}

func newRootCmdWith(providers providerFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "coachctl",
		Short:         "Repair model output and run generations from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newRepairCmd(),
		newGenerateCmd(providers),
	)
	return root
}
