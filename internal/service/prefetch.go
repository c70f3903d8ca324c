package service

import (
	"context"
	"fmt"

	"github.com/phrazzld/coach-api/internal/domain"
	"github.com/phrazzld/coach-api/internal/events"
	"golang.org/x/sync/errgroup"
)

// requestPrefetch asks the background workers to warm the bundle for the
// week after req. Nothing is emitted when that week is already cached.
func (s *PlanService) requestPrefetch(ctx context.Context, req domain.GenerationRequest) {
	if s.emitter == nil || s.prefetchWeeks == 0 {
		return
	}

	next := req
	next.Operation = domain.OperationBundle
	next.Locale = domain.NormalizeLocale(req.Locale)
	next.Message = ""
	next.WeekIndex = req.WeekIndex + 1
	if _, ok := s.bundle.Peek(next.Fingerprint()); ok {
		return
	}

	event, err := events.NewWeekPrefetchEvent(next)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create prefetch event", "error", err)
		return
	}
	// The request may finish before the handlers run.
	if err := s.emitter.EmitEvent(context.WithoutCancel(ctx), event); err != nil {
		s.logger.WarnContext(ctx, "prefetch request dropped",
			"week_index", next.WeekIndex,
			"error", err)
	}
}

// Prefetch warms the bundle cache starting at req's week. It implements the
// task.Prefetcher interface used by the background workers.
func (s *PlanService) Prefetch(ctx context.Context, req domain.GenerationRequest) error {
	return s.PrefetchWeeks(ctx, req, max(s.prefetchWeeks, 1))
}

// PrefetchWeeks generates the bundles for weeks req.WeekIndex through
// req.WeekIndex+weeks-1 and stores them in the cache. Weeks that are cached
// or already being generated are shared, not repeated. Unlike Bundle, a
// failed week is reported as an error and no fallback is stored.
func (s *PlanService) PrefetchWeeks(ctx context.Context, req domain.GenerationRequest, weeks int) error {
	if weeks <= 0 {
		return invalidRequest("prefetch needs at least one week, got %d", weeks)
	}
	req.Operation = domain.OperationBundle
	req, err := normalize(domain.OperationBundle, req)
	if err != nil {
		return err
	}

	op := bundleOp(s)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPrefetchConcurrency)
	for i := 0; i < weeks; i++ {
		week := req
		week.WeekIndex = req.WeekIndex + i
		g.Go(func() error {
			if _, err := fetch(gctx, s, op, week); err != nil {
				return fmt.Errorf("prefetch week %d: %w", week.WeekIndex, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "prefetch incomplete", "error", err)
		return NewPlanServiceError("prefetch", "failed to warm bundle cache", err)
	}
	s.logger.DebugContext(ctx, "prefetch complete",
		"first_week", req.WeekIndex,
		"weeks", weeks)
	return nil
}
