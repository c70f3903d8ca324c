package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/coach-api/internal/diagnostics"
	"github.com/phrazzld/coach-api/internal/generation"
	"github.com/phrazzld/coach-api/internal/repair"
)

// DefaultMaxAttempts is used when neither the Config nor the Spec sets a
// positive attempt budget.
const DefaultMaxAttempts = 3

// Config holds the coordinator-wide defaults.
type Config struct {
	MaxAttempts   int
	SnippetLength int
}

// Coordinator owns the provider and the diagnostics sink shared by every
// generation loop. It is safe for concurrent use.
type Coordinator struct {
	provider      generation.Provider
	sink          diagnostics.Sink
	logger        *slog.Logger
	maxAttempts   int
	snippetLength int
}

// NewCoordinator validates its dependencies and returns a Coordinator. A nil
// sink discards diagnostics and a nil logger uses slog.Default.
func NewCoordinator(provider generation.Provider, sink diagnostics.Sink, logger *slog.Logger, cfg Config) (*Coordinator, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: provider cannot be nil", generation.ErrInvalidConfig)
	}
	if sink == nil {
		sink = diagnostics.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.SnippetLength <= 0 {
		cfg.SnippetLength = repair.DefaultSnippetLength
	}
	return &Coordinator{
		provider:      provider,
		sink:          sink,
		logger:        logger.With("component", "retry_coordinator"),
		maxAttempts:   cfg.MaxAttempts,
		snippetLength: cfg.SnippetLength,
	}, nil
}

// Spec describes one generation: how to prompt, and how to turn the raw text
// into a valid T.
type Spec[T any] struct {
	Operation string
	// RequestID tags diagnostic records. A random ID is used when empty.
	RequestID string
	// Locale selects the script user-facing text must be written in.
	Locale string
	// MaxAttempts overrides the coordinator default when positive.
	MaxAttempts int

	// BuildPrompt returns the prompt for attempt (1-based). feedback is empty
	// on the first attempt and otherwise describes what was wrong with the
	// previous one.
	BuildPrompt func(attempt int, feedback string) string
	Decode      func(raw string) (T, repair.Result, error)
	// Validate and ExtractText are optional.
	Validate    func(T) error
	ExtractText func(T) []string
}

// Outcome is a successful generation.
type Outcome[T any] struct {
	Value    T
	Attempts int
	// Fixes is the union of repair labels applied across all attempts.
	Fixes []string
}

// failure is the reason an attempt was rejected.
type failure struct {
	reason   string
	snippet  string
	upstream error
}

// Generate runs the attempt loop for spec. It returns generation.ErrTimeout
// as soon as ctx is done, generation.ErrUpstreamFailure when the final
// attempt failed inside the provider, and *ExhaustedError when the budget ran
// out on bad responses.
func Generate[T any](ctx context.Context, c *Coordinator, spec Spec[T]) (Outcome[T], error) {
	var out Outcome[T]
	if spec.BuildPrompt == nil || spec.Decode == nil {
		return out, fmt.Errorf("%w: spec for %q needs BuildPrompt and Decode", generation.ErrInvalidConfig, spec.Operation)
	}

	maxAttempts := spec.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = c.maxAttempts
	}
	r := run{c: c, ctx: ctx, operation: spec.Operation, requestID: spec.RequestID}
	if r.requestID == "" {
		r.requestID = uuid.NewString()
	}

	var (
		feedback string
		last     failure
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return out, r.timeout(attempt, err)
		}
		out.Attempts = attempt
		r.record(attempt, diagnostics.StageAwaitingText, diagnostics.CategoryAttempt, "", "")

		raw, err := c.provider.Generate(ctx, spec.BuildPrompt(attempt, feedback))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, context.DeadlineExceeded) {
				if ctxErr == nil {
					ctxErr = err
				}
				return out, r.timeout(attempt, ctxErr)
			}
			// Provider failures say nothing about the model's output, so the
			// previous feedback is kept as is.
			last = failure{reason: "provider error: " + err.Error(), upstream: err}
			r.record(attempt, diagnostics.StageRetry, diagnostics.CategoryUpstream, err.Error(), "")
			continue
		}

		if strings.TrimSpace(raw) == "" {
			last = failure{reason: generation.ErrEmptyResponse.Error()}
			feedback = formatFeedback(last, "Return the complete JSON object.")
			r.record(attempt, diagnostics.StageRetry, diagnostics.CategoryEmptyResponse, last.reason, "")
			continue
		}

		r.record(attempt, diagnostics.StageDecoding, diagnostics.CategoryAttempt, "", "")
		value, res, err := spec.Decode(raw)
		for _, label := range res.Fixes() {
			out.Fixes = appendUnique(out.Fixes, label)
		}
		if res.Changed() {
			r.record(attempt, diagnostics.StageDecoding, diagnostics.CategoryRepaired, strings.Join(res.Fixes(), ","), "")
		}
		if err != nil {
			kind := repair.KindOther
			var decErr *repair.DecodeError
			if errors.As(err, &decErr) {
				kind = decErr.Kind
			}
			last = failure{
				reason:  fmt.Sprintf("response was not valid JSON (%s): %v", kind, err),
				snippet: repair.Snippet(raw, c.snippetLength),
			}
			feedback = formatFeedback(last, kind.Hint())
			r.record(attempt, diagnostics.StageRetry, diagnostics.CategoryDecode, last.reason, last.snippet)
			continue
		}

		r.record(attempt, diagnostics.StageValidating, diagnostics.CategoryAttempt, "", "")
		if spec.Validate != nil {
			if err := spec.Validate(value); err != nil {
				last = failure{
					reason:  "payload failed validation: " + err.Error(),
					snippet: repair.Snippet(res.Text, c.snippetLength),
				}
				feedback = formatFeedback(last, "Fix the issue while keeping the same JSON shape.")
				r.record(attempt, diagnostics.StageRetry, diagnostics.CategoryValidation, err.Error(), last.snippet)
				continue
			}
		}

		r.record(attempt, diagnostics.StageLanguageChecking, diagnostics.CategoryAttempt, "", "")
		if spec.ExtractText != nil {
			if err := repair.CheckLanguage(spec.Locale, spec.ExtractText(value)); err != nil {
				var issue *repair.LanguageIssue
				sample := ""
				if errors.As(err, &issue) {
					sample = issue.Sample
				}
				last = failure{reason: err.Error(), snippet: sample}
				feedback = formatFeedback(last, languageDemand(spec.Locale))
				r.record(attempt, diagnostics.StageRetry, diagnostics.CategoryLanguageMismatch, err.Error(), sample)
				continue
			}
		}

		out.Value = value
		r.record(attempt, diagnostics.StageSuccess, diagnostics.CategorySuccess, strings.Join(out.Fixes, ","), "")
		return out, nil
	}

	if last.upstream != nil {
		r.record(out.Attempts, diagnostics.StageExhausted, diagnostics.CategoryUpstream, last.reason, "")
		return out, fmt.Errorf("%w: %s after %d attempts: %w",
			generation.ErrUpstreamFailure, spec.Operation, out.Attempts, last.upstream)
	}

	r.record(out.Attempts, diagnostics.StageExhausted, diagnostics.CategoryExhausted, last.reason, last.snippet)
	c.logger.WarnContext(ctx, "generation attempts exhausted",
		"operation", spec.Operation,
		"request_id", r.requestID,
		"attempts", out.Attempts,
		"reason", last.reason)
	return out, &ExhaustedError{
		Operation: spec.Operation,
		Attempts:  out.Attempts,
		Reason:    last.reason,
		Snippet:   last.snippet,
	}
}

// run carries the per-generation values the record helpers need.
type run struct {
	c         *Coordinator
	ctx       context.Context
	operation string
	requestID string
}

func (r run) record(attempt int, stage diagnostics.Stage, category, message, snippet string) {
	r.c.sink.Record(r.ctx, diagnostics.Record{
		Operation: r.operation,
		RequestID: r.requestID,
		Attempt:   attempt,
		Stage:     stage,
		Category:  category,
		Message:   message,
		Snippet:   snippet,
	})
}

func (r run) timeout(attempt int, cause error) error {
	r.record(attempt, diagnostics.StageExhausted, diagnostics.CategoryTimeout, cause.Error(), "")
	return fmt.Errorf("%w: %s attempt %d: %w", generation.ErrTimeout, r.operation, attempt, cause)
}

// formatFeedback formats the single note passed to the next prompt. Only the most
// recent issue is carried, so prompts do not grow with the attempt count.
func formatFeedback(f failure, instruction string) string {
	var b strings.Builder
	b.WriteString("Previous attempt issue: ")
	b.WriteString(f.reason)
	if f.snippet != "" {
		fmt.Fprintf(&b, "\nOffending text: %q", f.snippet)
	}
	if instruction != "" {
		b.WriteString("\n")
		b.WriteString(instruction)
	}
	return b.String()
}

func languageDemand(locale string) string {
	script := repair.ExpectedScript(locale)
	if script == "" {
		return "Write every user-facing string in the requested language."
	}
	return fmt.Sprintf("Write every user-facing string in %s script for locale %s.", script, locale)
}

func appendUnique(labels []string, label string) []string {
	for _, l := range labels {
		if l == label {
			return labels
		}
	}
	return append(labels, label)
}
