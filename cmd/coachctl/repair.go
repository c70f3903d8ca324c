package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/phrazzld/coach-api/internal/domain"
	"github.com/phrazzld/coach-api/internal/repair"
	"github.com/spf13/cobra"
)

// newRepairCmd prints the repaired form of a file of raw model output.
func newRepairCmd() *cobra.Command {
	var op string
	cmd := &cobra.Command{
		Use:   "repair <file>",
		Short: "Repair malformed JSON from a model response",
		Long: "Repair applies the JSON repair heuristics to the file (or stdin when the\n" +
			"file is \"-\") and prints the result. Fix labels go to stderr. With --op the\n" +
			"repaired text is also decoded and validated as that payload.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			res := repair.Repair(raw)
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			if res.Changed() {
				fmt.Fprintf(cmd.ErrOrStderr(), "fixes: %s\n", strings.Join(res.Fixes(), ", "))
			} else {
				fmt.Fprintln(cmd.ErrOrStderr(), "fixes: none")
			}

			if op == "" {
				return nil
			}
			return checkPayload(domain.Operation(op), raw)
		},
	}
	cmd.Flags().StringVar(&op, "op", "", "Also decode and validate as training, nutrition, sleep, chat or bundle")
	return cmd
}

func readInput(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// checkPayload runs the same decode and validation the service applies to
// each attempt.
func checkPayload(op domain.Operation, raw string) error {
	var err error
	switch op {
	case domain.OperationTraining:
		var p domain.TrainingPlan
		if p, _, err = repair.DecodeTraining(raw); err == nil {
			err = repair.ValidateTraining(p)
		}
	case domain.OperationNutrition:
		var p domain.NutritionPlan
		if p, _, err = repair.DecodeNutrition(raw); err == nil {
			err = repair.ValidateNutrition(p)
		}
	case domain.OperationSleep:
		var p domain.SleepAdvice
		if p, _, err = repair.DecodeSleep(raw); err == nil {
			err = repair.ValidateSleep(p)
		}
	case domain.OperationChat:
		var p domain.ChatReply
		if p, _, err = repair.DecodeChat(raw); err == nil {
			err = repair.ValidateChat(p)
		}
	case domain.OperationBundle:
		var p domain.Bundle
		if p, _, err = repair.DecodeBundle(raw); err == nil {
			err = repair.ValidateBundle(p)
		}
	default:
		return fmt.Errorf("unknown operation %q", op)
	}
	if err != nil {
		return fmt.Errorf("%s payload rejected: %w", op, err)
	}
	return nil
}
