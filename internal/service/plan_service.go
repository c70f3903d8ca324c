package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/coach-api/internal/diagnostics"
	"github.com/phrazzld/coach-api/internal/domain"
	"github.com/phrazzld/coach-api/internal/events"
	"github.com/phrazzld/coach-api/internal/fallback"
	"github.com/phrazzld/coach-api/internal/flight"
	"github.com/phrazzld/coach-api/internal/generation"
	"github.com/phrazzld/coach-api/internal/prompt"
	"github.com/phrazzld/coach-api/internal/repair"
	"github.com/phrazzld/coach-api/internal/retry"
)

// Defaults applied when a Config field is not positive.
const (
	DefaultCacheTTL          = 30 * time.Minute
	DefaultOperationDeadline = 100 * time.Second
	DefaultPrefetchWeeks     = 1
	// maxPrefetchConcurrency bounds the generations a single prefetch runs
	// at once.
	maxPrefetchConcurrency = 2
)

// Source tells whether a payload came from the model or from fallback data.
type Source string

// Payload sources.
const (
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// Result is what every operation returns: a valid payload plus how it was
// obtained. Fixes is the caller's own copy. Payload may share slices and maps
// with the cached entry and every other caller of the same request, so it
// must be treated as read-only.
type Result[T any] struct {
	Source   Source   `json:"source"`
	Attempts int      `json:"attempts"`
	Fixes    []string `json:"fixes"`
	Payload  T        `json:"payload"`
}

// Config holds the service-level settings.
type Config struct {
	CacheTTL          time.Duration
	OperationDeadline time.Duration
	// PrefetchWeeks is how many weeks a prefetch request warms. Zero turns
	// background prefetch after a bundle off.
	PrefetchWeeks int
	// Now overrides the cache clock, for tests.
	Now func() time.Time
}

// PlanService runs the coaching operations. It is safe for concurrent use.
type PlanService struct {
	retry   *retry.Coordinator
	prompts *prompt.Builder
	emitter events.EventEmitter
	sink    diagnostics.Sink
	logger  *slog.Logger

	deadline      time.Duration
	prefetchWeeks int

	training  *flight.Coordinator[retry.Outcome[domain.TrainingPlan]]
	nutrition *flight.Coordinator[retry.Outcome[domain.NutritionPlan]]
	sleep     *flight.Coordinator[retry.Outcome[domain.SleepAdvice]]
	chat      *flight.Coordinator[retry.Outcome[domain.ChatReply]]
	bundle    *flight.Coordinator[retry.Outcome[domain.Bundle]]
}

// NewPlanService validates its dependencies and returns a PlanService. The
// emitter is optional; without it no background prefetch is requested. A nil
// sink discards fallback diagnostics.
func NewPlanService(
	coordinator *retry.Coordinator,
	prompts *prompt.Builder,
	emitter events.EventEmitter,
	sink diagnostics.Sink,
	logger *slog.Logger,
	cfg Config,
) (*PlanService, error) {
	if coordinator == nil {
		return nil, &PlanServiceError{Operation: "create_service", Message: "retry coordinator cannot be nil"}
	}
	if prompts == nil {
		return nil, &PlanServiceError{Operation: "create_service", Message: "prompt builder cannot be nil"}
	}
	if sink == nil {
		sink = diagnostics.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.OperationDeadline <= 0 {
		cfg.OperationDeadline = DefaultOperationDeadline
	}
	if cfg.PrefetchWeeks < 0 {
		cfg.PrefetchWeeks = 0
	}

	var opts []flight.Option
	if cfg.Now != nil {
		opts = append(opts, flight.WithClock(cfg.Now))
	}

	return &PlanService{
		retry:         coordinator,
		prompts:       prompts,
		emitter:       emitter,
		sink:          sink,
		logger:        logger.With("component", "plan_service"),
		deadline:      cfg.OperationDeadline,
		prefetchWeeks: cfg.PrefetchWeeks,
		training:      flight.New[retry.Outcome[domain.TrainingPlan]](cfg.CacheTTL, opts...),
		nutrition:     flight.New[retry.Outcome[domain.NutritionPlan]](cfg.CacheTTL, opts...),
		sleep:         flight.New[retry.Outcome[domain.SleepAdvice]](cfg.CacheTTL, opts...),
		chat:          flight.New[retry.Outcome[domain.ChatReply]](cfg.CacheTTL, opts...),
		bundle:        flight.New[retry.Outcome[domain.Bundle]](cfg.CacheTTL, opts...),
	}, nil
}

// operation binds the per-payload pieces of the shared generation path.
type operation[T any] struct {
	op       domain.Operation
	flights  *flight.Coordinator[retry.Outcome[T]]
	decode   func(string) (T, repair.Result, error)
	validate func(T) error
	texts    func(T) []string
	fallback func(domain.GenerationRequest) T
}

func trainingOp(s *PlanService) operation[domain.TrainingPlan] {
	return operation[domain.TrainingPlan]{
		op:       domain.OperationTraining,
		flights:  s.training,
		decode:   repair.DecodeTraining,
		validate: repair.ValidateTraining,
		texts:    func(p domain.TrainingPlan) []string { return p.Texts() },
		fallback: fallback.Training,
	}
}

func nutritionOp(s *PlanService) operation[domain.NutritionPlan] {
	return operation[domain.NutritionPlan]{
		op:       domain.OperationNutrition,
		flights:  s.nutrition,
		decode:   repair.DecodeNutrition,
		validate: repair.ValidateNutrition,
		texts:    func(p domain.NutritionPlan) []string { return p.Texts() },
		fallback: fallback.Nutrition,
	}
}

func sleepOp(s *PlanService) operation[domain.SleepAdvice] {
	return operation[domain.SleepAdvice]{
		op:       domain.OperationSleep,
		flights:  s.sleep,
		decode:   repair.DecodeSleep,
		validate: repair.ValidateSleep,
		texts:    func(a domain.SleepAdvice) []string { return a.Texts() },
		fallback: fallback.Sleep,
	}
}

func chatOp(s *PlanService) operation[domain.ChatReply] {
	return operation[domain.ChatReply]{
		op:       domain.OperationChat,
		flights:  s.chat,
		decode:   repair.DecodeChat,
		validate: repair.ValidateChat,
		texts:    func(c domain.ChatReply) []string { return c.Texts() },
		fallback: fallback.Chat,
	}
}

func bundleOp(s *PlanService) operation[domain.Bundle] {
	return operation[domain.Bundle]{
		op:       domain.OperationBundle,
		flights:  s.bundle,
		decode:   repair.DecodeBundle,
		validate: repair.ValidateBundle,
		texts:    func(b domain.Bundle) []string { return b.Texts() },
		fallback: fallback.Bundle,
	}
}

// Training returns the training plan for req's week.
func (s *PlanService) Training(ctx context.Context, req domain.GenerationRequest) (Result[domain.TrainingPlan], error) {
	return serve(ctx, s, trainingOp(s), req)
}

// Nutrition returns the nutrition plan for req's week.
func (s *PlanService) Nutrition(ctx context.Context, req domain.GenerationRequest) (Result[domain.NutritionPlan], error) {
	return serve(ctx, s, nutritionOp(s), req)
}

// Sleep returns sleep advice for req's week.
func (s *PlanService) Sleep(ctx context.Context, req domain.GenerationRequest) (Result[domain.SleepAdvice], error) {
	return serve(ctx, s, sleepOp(s), req)
}

// Chat answers req.Message.
func (s *PlanService) Chat(ctx context.Context, req domain.GenerationRequest) (Result[domain.ChatReply], error) {
	return serve(ctx, s, chatOp(s), req)
}

// Bundle returns training, nutrition and sleep for req's week from a single
// generation. When the bundle was generated, the following weeks are
// requested in the background.
func (s *PlanService) Bundle(ctx context.Context, req domain.GenerationRequest) (Result[domain.Bundle], error) {
	res, err := serve(ctx, s, bundleOp(s), req)
	if err == nil && res.Source == SourceGenerated {
		s.requestPrefetch(ctx, req)
	}
	return res, err
}

// serve runs one operation and substitutes fallback data for any failure a
// user must not see.
func serve[T any](ctx context.Context, s *PlanService, op operation[T], req domain.GenerationRequest) (Result[T], error) {
	req, err := normalize(op.op, req)
	if err != nil {
		return Result[T]{}, err
	}

	out, err := fetch(ctx, s, op, req)
	if err == nil {
		return Result[T]{Source: SourceGenerated, Attempts: out.Attempts, Fixes: fixes(out.Fixes), Payload: out.Value}, nil
	}
	if !fallbackable(err) {
		return Result[T]{}, NewPlanServiceError(string(op.op), "generation failed", err)
	}

	s.sink.Record(ctx, diagnostics.Record{
		Operation: string(op.op),
		RequestID: diagnostics.RequestIDFromContext(ctx),
		Attempt:   out.Attempts,
		Stage:     diagnostics.StageExhausted,
		Category:  diagnostics.CategoryFallback,
		Message:   err.Error(),
	})
	s.logger.WarnContext(ctx, "serving fallback payload",
		"operation", op.op,
		"week_index", req.WeekIndex,
		"locale", req.Locale,
		"error", err)
	return Result[T]{Source: SourceFallback, Attempts: out.Attempts, Fixes: []string{}, Payload: op.fallback(req)}, nil
}

// fetch returns the cached or shared outcome for req, generating it when no
// other caller is. Errors are returned as-is and never cached.
func fetch[T any](ctx context.Context, s *PlanService, op operation[T], req domain.GenerationRequest) (retry.Outcome[T], error) {
	base, err := s.prompts.Render(req)
	if err != nil {
		return retry.Outcome[T]{}, NewPlanServiceError(string(op.op), "failed to render prompt", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	requestID := diagnostics.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	return op.flights.Fetch(ctx, req.Fingerprint(), func(ctx context.Context) (retry.Outcome[T], error) {
		s.logger.DebugContext(ctx, "generating",
			"operation", op.op,
			"week_index", req.WeekIndex,
			"locale", req.Locale,
			"request_id", requestID)
		return retry.Generate(ctx, s.retry, retry.Spec[T]{
			Operation: string(op.op),
			RequestID: requestID,
			Locale:    req.Locale,
			BuildPrompt: func(_ int, feedback string) string {
				return prompt.WithFeedback(base, feedback)
			},
			Decode:      op.decode,
			Validate:    op.validate,
			ExtractText: op.texts,
		})
	})
}

// fallbackable reports whether err is absorbed by serving fallback data.
// Context errors reach here when a caller waiting on a shared generation
// hits its own deadline.
func fallbackable(err error) bool {
	return generation.IsFallbackable(err) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, flight.ErrOwnerPanicked)
}

func normalize(op domain.Operation, req domain.GenerationRequest) (domain.GenerationRequest, error) {
	if req.Operation == "" {
		req.Operation = op
	}
	if req.Operation != op {
		return req, invalidRequest("operation %q sent to %s", req.Operation, op)
	}
	if req.WeekIndex < 0 {
		return req, invalidRequest("week index %d is negative", req.WeekIndex)
	}
	if op == domain.OperationChat {
		req.Message = strings.TrimSpace(req.Message)
		if req.Message == "" {
			return req, invalidRequest("chat message is empty")
		}
	} else {
		req.Message = ""
	}
	req.Locale = domain.NormalizeLocale(req.Locale)
	return req, nil
}

// fixes copies labels so callers cannot reach the cached outcome's slice.
func fixes(labels []string) []string {
	return append(make([]string, 0, len(labels)), labels...)
}

// OperationStats is the cache view of every operation.
type OperationStats map[domain.Operation]flight.Stats

// Stats returns the request coordinator counters per operation.
func (s *PlanService) Stats() OperationStats {
	return OperationStats{
		domain.OperationTraining:  s.training.Stats(),
		domain.OperationNutrition: s.nutrition.Stats(),
		domain.OperationSleep:     s.sleep.Stats(),
		domain.OperationChat:      s.chat.Stats(),
		domain.OperationBundle:    s.bundle.Stats(),
	}
}

// EvictExpired drops stale cache entries of every operation and returns how
// many were removed.
func (s *PlanService) EvictExpired() int {
	return s.training.EvictExpired() +
		s.nutrition.EvictExpired() +
		s.sleep.EvictExpired() +
		s.chat.EvictExpired() +
		s.bundle.EvictExpired()
}

// Invalidate drops the cached result for req so the next call regenerates it.
func (s *PlanService) Invalidate(req domain.GenerationRequest) error {
	req.Locale = domain.NormalizeLocale(req.Locale)
	key := req.Fingerprint()
	switch req.Operation {
	case domain.OperationTraining:
		s.training.Invalidate(key)
	case domain.OperationNutrition:
		s.nutrition.Invalidate(key)
	case domain.OperationSleep:
		s.sleep.Invalidate(key)
	case domain.OperationChat:
		s.chat.Invalidate(key)
	case domain.OperationBundle:
		s.bundle.Invalidate(key)
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalidRequest, domain.ErrInvalidOperation, req.Operation)
	}
	return nil
}
