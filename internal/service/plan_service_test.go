package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/coach-api/internal/diagnostics"
	"github.com/phrazzld/coach-api/internal/domain"
	"github.com/phrazzld/coach-api/internal/events"
	"github.com/phrazzld/coach-api/internal/generation"
	"github.com/phrazzld/coach-api/internal/mocks"
	"github.com/phrazzld/coach-api/internal/prompt"
	"github.com/phrazzld/coach-api/internal/repair"
	"github.com/phrazzld/coach-api/internal/retry"
	"github.com/phrazzld/coach-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	trainingJSON  = `{"weekIndex":0,"workouts":[{"id":"w1","date":"2025-01-06","title":"Lower body","sets":[{"exerciseId":"squat","reps":8,"weightKg":60,"rpe":7.5}]}]}`
	nutritionJSON = `{"weekIndex":0,"days":{"Mon":[{"name":"Oats","macros":{"kcal":400,"protein":20,"fat":10,"carbs":57},"ingredients":[{"name":"oats","amount":80,"unit":"g"}]}]}}`
	sleepJSON     = `{"messages":["Keep a regular bedtime."],"disclaimer":"Not medical advice."}`
	chatJSON      = `{"message":"Add five kilos next week.","suggestions":["Sleep eight hours"]}`
	bundleJSON    = `{"training":` + trainingJSON + `,"nutrition":` + nutritionJSON + `,"sleep":` + sleepJSON + `}`
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testProfile() domain.Profile {
	return domain.Profile{
		Age:         30,
		Sex:         "female",
		HeightCm:    170,
		WeightKg:    65,
		Goal:        "strength",
		Experience:  "intermediate",
		DaysPerWeek: 3,
		Equipment:   "barbell",
		SleepHours:  6,
	}
}

func request(op domain.Operation, week int) domain.GenerationRequest {
	return domain.GenerationRequest{Operation: op, Profile: testProfile(), WeekIndex: week, Locale: "en"}
}

type fixture struct {
	svc      *service.PlanService
	provider *mocks.MockProvider
	recorder *diagnostics.Recorder
}

type option func(*service.Config)

func newFixture(t *testing.T, provider *mocks.MockProvider, emitter events.EventEmitter, opts ...option) fixture {
	t.Helper()

	recorder := diagnostics.NewRecorder(discardLogger())
	coordinator, err := retry.NewCoordinator(provider, recorder, discardLogger(), retry.Config{MaxAttempts: 2})
	require.NoError(t, err)
	builder, err := prompt.NewBuilder("")
	require.NoError(t, err)

	cfg := service.Config{CacheTTL: time.Hour, OperationDeadline: 5 * time.Second, PrefetchWeeks: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	svc, err := service.NewPlanService(coordinator, builder, emitter, recorder, discardLogger(), cfg)
	require.NoError(t, err)
	return fixture{svc: svc, provider: provider, recorder: recorder}
}

func TestNewPlanService_RequiresDependencies(t *testing.T) {
	t.Parallel()

	builder, err := prompt.NewBuilder("")
	require.NoError(t, err)
	coordinator, err := retry.NewCoordinator(mocks.NewMockProviderWithText(sleepJSON), nil, nil, retry.Config{})
	require.NoError(t, err)

	_, err = service.NewPlanService(nil, builder, nil, nil, nil, service.Config{})
	assert.Error(t, err)
	_, err = service.NewPlanService(coordinator, nil, nil, nil, nil, service.Config{})
	assert.Error(t, err)
}

func TestOperations_GeneratedPayloads(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("training", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, mocks.NewMockProviderWithText(trainingJSON), nil)
		res, err := f.svc.Training(ctx, request(domain.OperationTraining, 0))
		require.NoError(t, err)
		assert.Equal(t, service.SourceGenerated, res.Source)
		assert.Equal(t, 1, res.Attempts)
		assert.Equal(t, "squat", res.Payload.Workouts[0].Sets[0].ExerciseID)
	})

	t.Run("nutrition", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, mocks.NewMockProviderWithText(nutritionJSON), nil)
		res, err := f.svc.Nutrition(ctx, request(domain.OperationNutrition, 0))
		require.NoError(t, err)
		assert.Equal(t, service.SourceGenerated, res.Source)
		assert.Len(t, res.Payload.Days[domain.Mon], 1)
	})

	t.Run("sleep with repairs", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, mocks.NewMockProviderWithText("```json\n"+sleepJSON+"\n```"), nil)
		res, err := f.svc.Sleep(ctx, request(domain.OperationSleep, 0))
		require.NoError(t, err)
		assert.Equal(t, service.SourceGenerated, res.Source)
		assert.NotEmpty(t, res.Fixes)
	})

	t.Run("chat", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, mocks.NewMockProviderWithText(chatJSON), nil)
		req := request(domain.OperationChat, 0)
		req.Message = "  Should I go heavier?  "
		res, err := f.svc.Chat(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "Add five kilos next week.", res.Payload.Message)
		assert.Contains(t, f.provider.Prompts()[0], "Should I go heavier?")
	})

	t.Run("bundle", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, mocks.NewMockProviderWithText(bundleJSON), nil)
		res, err := f.svc.Bundle(ctx, request(domain.OperationBundle, 0))
		require.NoError(t, err)
		assert.Equal(t, service.SourceGenerated, res.Source)
		assert.NotEmpty(t, res.Payload.Training.Workouts)
		assert.NotEmpty(t, res.Payload.Sleep.Messages)
	})
}

func TestTraining_CachedResultSkipsProvider(t *testing.T) {
	t.Parallel()

	f := newFixture(t, mocks.NewMockProviderWithText(trainingJSON), nil)
	req := request(domain.OperationTraining, 0)

	first, err := f.svc.Training(context.Background(), req)
	require.NoError(t, err)
	req.Locale = "EN"
	second, err := f.svc.Training(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Payload, second.Payload)
	assert.Equal(t, 1, f.provider.CallCount(), "locale case does not change the cache key")
	stats := f.svc.Stats()[domain.OperationTraining]
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestSleep_CachedFixesAreNotShared(t *testing.T) {
	t.Parallel()

	f := newFixture(t, mocks.NewMockProviderWithText("```json\n"+sleepJSON+"\n```"), nil)
	req := request(domain.OperationSleep, 0)

	first, err := f.svc.Sleep(context.Background(), req)
	require.NoError(t, err)
	require.Contains(t, first.Fixes, repair.LabelStripFences)
	first.Fixes[0] = "tampered"
	first.Fixes = append(first.Fixes, "extra")

	second, err := f.svc.Sleep(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, f.provider.CallCount())
	assert.Contains(t, second.Fixes, repair.LabelStripFences)
	assert.NotContains(t, second.Fixes, "tampered")
	assert.NotContains(t, second.Fixes, "extra")
}

func TestTraining_TTLExpiryRegenerates(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	now := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	f := newFixture(t, mocks.NewMockProviderWithText(trainingJSON), nil, func(c *service.Config) {
		c.CacheTTL = 10 * time.Minute
		c.Now = clock
	})
	req := request(domain.OperationTraining, 0)

	_, err := f.svc.Training(context.Background(), req)
	require.NoError(t, err)

	mu.Lock()
	now = now.Add(11 * time.Minute)
	mu.Unlock()

	_, err = f.svc.Training(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, f.provider.CallCount())
	assert.Equal(t, 0, f.svc.EvictExpired(), "the stale entry was replaced on fetch")
}

func TestSleep_ExhaustedServesFallbackAndDoesNotCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t, mocks.NewMockProviderWithText(`{"messages":`), nil)
	req := request(domain.OperationSleep, 0)

	res, err := f.svc.Sleep(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, service.SourceFallback, res.Source)
	assert.Equal(t, 2, res.Attempts)
	assert.NotEmpty(t, res.Payload.Messages)
	assert.Equal(t, 2, f.provider.CallCount())
	assert.Equal(t, int64(1), f.recorder.Count(string(domain.OperationSleep), diagnostics.CategoryFallback))

	_, err = f.svc.Sleep(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 4, f.provider.CallCount(), "fallback payloads are never cached")
}

func TestTraining_UpstreamFailureServesFallback(t *testing.T) {
	t.Parallel()

	f := newFixture(t, mocks.NewMockProviderWithError(errors.New("503 unavailable")), nil)
	res, err := f.svc.Training(context.Background(), request(domain.OperationTraining, 2))
	require.NoError(t, err)
	assert.Equal(t, service.SourceFallback, res.Source)
	assert.Len(t, res.Payload.Workouts, 3)
	assert.Equal(t, 2, res.Payload.WeekIndex)
}

func TestNutrition_DeadlineServesFallback(t *testing.T) {
	t.Parallel()

	provider := &mocks.MockProvider{
		GenerateFn: func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	f := newFixture(t, provider, nil, func(c *service.Config) {
		c.OperationDeadline = 20 * time.Millisecond
	})

	res, err := f.svc.Nutrition(context.Background(), request(domain.OperationNutrition, 0))
	require.NoError(t, err)
	assert.Equal(t, service.SourceFallback, res.Source)
	assert.Len(t, res.Payload.Days, len(domain.DayKeys))
	assert.Equal(t, int64(1), f.recorder.Count(string(domain.OperationNutrition), diagnostics.CategoryTimeout))
}

func TestChat_ContentBlockedServesFallback(t *testing.T) {
	t.Parallel()

	f := newFixture(t, mocks.MockProviderWithContentBlocked(), nil)
	req := request(domain.OperationChat, 0)
	req.Message = "hello"

	res, err := f.svc.Chat(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, service.SourceFallback, res.Source)
	assert.NotEmpty(t, res.Payload.Message)
}

func TestOperations_InvalidRequests(t *testing.T) {
	t.Parallel()

	f := newFixture(t, mocks.NewMockProviderWithText(trainingJSON), nil)
	ctx := context.Background()

	_, err := f.svc.Training(ctx, request(domain.OperationTraining, -1))
	assert.ErrorIs(t, err, service.ErrInvalidRequest)

	_, err = f.svc.Training(ctx, request(domain.OperationSleep, 0))
	assert.ErrorIs(t, err, service.ErrInvalidRequest)

	_, err = f.svc.Chat(ctx, request(domain.OperationChat, 0))
	assert.ErrorIs(t, err, service.ErrInvalidRequest)

	assert.Equal(t, 0, f.provider.CallCount())
}

func TestTraining_ConcurrentCallersShareGeneration(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	provider := &mocks.MockProvider{
		GenerateFn: func(context.Context, string) (string, error) {
			<-release
			return trainingJSON, nil
		},
	}
	f := newFixture(t, provider, nil)
	req := request(domain.OperationTraining, 0)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]service.Result[domain.TrainingPlan], callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Training(context.Background(), req)
		}(i)
	}

	require.Eventually(t, func() bool {
		return f.svc.Stats()[domain.OperationTraining].SharedWaits == callers-1
	}, 2*time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, provider.CallCount())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, service.SourceGenerated, results[i].Source)
	}
}

func TestWaiterDeadline_ServesFallbackWhileOwnerContinues(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	provider := &mocks.MockProvider{
		GenerateFn: func(context.Context, string) (string, error) {
			once.Do(func() { close(started) })
			<-release
			return sleepJSON, nil
		},
	}
	f := newFixture(t, provider, nil)
	req := request(domain.OperationSleep, 0)

	owner := make(chan service.Result[domain.SleepAdvice])
	go func() {
		res, _ := f.svc.Sleep(context.Background(), req)
		owner <- res
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	res, err := f.svc.Sleep(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, service.SourceFallback, res.Source)

	close(release)
	assert.Equal(t, service.SourceGenerated, (<-owner).Source)
	assert.Equal(t, 1, provider.CallCount())
}

type capturingEmitter struct {
	mu     sync.Mutex
	events []*events.TaskRequestEvent
}

func (c *capturingEmitter) EmitEvent(_ context.Context, event *events.TaskRequestEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturingEmitter) requests(t *testing.T) []domain.GenerationRequest {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.GenerationRequest
	for _, e := range c.events {
		require.Equal(t, events.EventTypeWeekPrefetch, e.Type)
		var req domain.GenerationRequest
		require.NoError(t, e.UnmarshalPayload(&req))
		out = append(out, req)
	}
	return out
}

func TestBundle_RequestsNextWeekPrefetch(t *testing.T) {
	t.Parallel()

	emitter := &capturingEmitter{}
	f := newFixture(t, mocks.NewMockProviderWithText(bundleJSON), emitter)

	_, err := f.svc.Bundle(context.Background(), request(domain.OperationBundle, 3))
	require.NoError(t, err)

	reqs := emitter.requests(t)
	require.Len(t, reqs, 1)
	assert.Equal(t, 4, reqs[0].WeekIndex)
	assert.Equal(t, domain.OperationBundle, reqs[0].Operation)
	assert.Equal(t, testProfile(), reqs[0].Profile)
}

func TestBundle_NoPrefetch(t *testing.T) {
	t.Parallel()

	t.Run("fallback", func(t *testing.T) {
		t.Parallel()
		emitter := &capturingEmitter{}
		f := newFixture(t, mocks.NewMockProviderWithText("no json here"), emitter)
		res, err := f.svc.Bundle(context.Background(), request(domain.OperationBundle, 0))
		require.NoError(t, err)
		assert.Equal(t, service.SourceFallback, res.Source)
		assert.Empty(t, emitter.requests(t))
	})

	t.Run("next week already cached", func(t *testing.T) {
		t.Parallel()
		emitter := &capturingEmitter{}
		f := newFixture(t, mocks.NewMockProviderWithText(bundleJSON), emitter)
		require.NoError(t, f.svc.PrefetchWeeks(context.Background(), request(domain.OperationBundle, 1), 1))
		_, err := f.svc.Bundle(context.Background(), request(domain.OperationBundle, 0))
		require.NoError(t, err)
		assert.Empty(t, emitter.requests(t))
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()
		emitter := &capturingEmitter{}
		f := newFixture(t, mocks.NewMockProviderWithText(bundleJSON), emitter, func(c *service.Config) {
			c.PrefetchWeeks = 0
		})
		_, err := f.svc.Bundle(context.Background(), request(domain.OperationBundle, 0))
		require.NoError(t, err)
		assert.Empty(t, emitter.requests(t))
	})
}

func TestPrefetchWeeks_WarmsCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t, mocks.NewMockProviderWithText(bundleJSON), nil)
	require.NoError(t, f.svc.PrefetchWeeks(context.Background(), request(domain.OperationBundle, 2), 3))
	assert.Equal(t, 3, f.provider.CallCount())

	for week := 2; week < 5; week++ {
		res, err := f.svc.Bundle(context.Background(), request(domain.OperationBundle, week))
		require.NoError(t, err)
		assert.Equal(t, service.SourceGenerated, res.Source)
	}
	assert.Equal(t, 3, f.provider.CallCount(), "prefetched weeks are served from cache")
	assert.Equal(t, int64(3), f.svc.Stats()[domain.OperationBundle].Hits)
}

func TestPrefetchWeeks_FailureIsReported(t *testing.T) {
	t.Parallel()

	f := newFixture(t, mocks.NewMockProviderWithText("not json"), nil)
	err := f.svc.PrefetchWeeks(context.Background(), request(domain.OperationBundle, 0), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, generation.ErrExhaustedRetries)

	var svcErr *service.PlanServiceError
	assert.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "prefetch", svcErr.Operation)

	assert.ErrorIs(t, f.svc.PrefetchWeeks(context.Background(), request(domain.OperationBundle, 0), 0), service.ErrInvalidRequest)
}

func TestPrefetch_ThroughEventPipeline(t *testing.T) {
	t.Parallel()

	emitter := events.NewInMemoryEventEmitter(discardLogger())
	f := newFixture(t, mocks.NewMockProviderWithText(bundleJSON), emitter)

	warmed := make(chan domain.GenerationRequest, 2)
	emitter.RegisterHandler(events.EventHandlerFunc(func(ctx context.Context, e *events.TaskRequestEvent) error {
		var req domain.GenerationRequest
		if err := e.UnmarshalPayload(&req); err != nil {
			return err
		}
		if err := f.svc.Prefetch(ctx, req); err != nil {
			return err
		}
		warmed <- req
		return nil
	}))

	_, err := f.svc.Bundle(context.Background(), request(domain.OperationBundle, 0))
	require.NoError(t, err)
	next := <-warmed
	assert.Equal(t, 1, next.WeekIndex)

	res, err := f.svc.Bundle(context.Background(), request(domain.OperationBundle, 1))
	require.NoError(t, err)
	assert.Equal(t, service.SourceGenerated, res.Source)
	assert.Equal(t, int64(1), f.svc.Stats()[domain.OperationBundle].Hits, "week 1 came from the prefetch")
}

func TestInvalidate(t *testing.T) {
	t.Parallel()

	f := newFixture(t, mocks.NewMockProviderWithText(sleepJSON), nil)
	req := request(domain.OperationSleep, 0)

	_, err := f.svc.Sleep(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, f.svc.Invalidate(req))
	_, err = f.svc.Sleep(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, f.provider.CallCount())

	req.Operation = "workout"
	assert.ErrorIs(t, f.svc.Invalidate(req), service.ErrInvalidRequest)
}
