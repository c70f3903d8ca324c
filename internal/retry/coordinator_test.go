package retry_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/phrazzld/coach-api/internal/diagnostics"
	"github.com/phrazzld/coach-api/internal/domain"
	"github.com/phrazzld/coach-api/internal/generation"
	"github.com/phrazzld/coach-api/internal/mocks"
	"github.com/phrazzld/coach-api/internal/repair"
	"github.com/phrazzld/coach-api/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSleep = `{"messages":["Go to bed at the same time every night."],"disclaimer":"Not medical advice."}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sleepSpec(locale string) retry.Spec[domain.SleepAdvice] {
	return retry.Spec[domain.SleepAdvice]{
		Operation: "sleep",
		RequestID: "req-1",
		Locale:    locale,
		BuildPrompt: func(attempt int, feedback string) string {
			if feedback == "" {
				return "Give sleep advice as JSON."
			}
			return "Give sleep advice as JSON.\n" + feedback
		},
		Decode:   repair.DecodeSleep,
		Validate: repair.ValidateSleep,
		ExtractText: func(a domain.SleepAdvice) []string {
			return a.Texts()
		},
	}
}

func newCoordinator(t *testing.T, p generation.Provider, sink diagnostics.Sink, attempts int) *retry.Coordinator {
	t.Helper()
	c, err := retry.NewCoordinator(p, sink, discardLogger(), retry.Config{MaxAttempts: attempts})
	require.NoError(t, err)
	return c
}

func TestGenerate_FirstAttemptSuccess(t *testing.T) {
	t.Parallel()

	provider := mocks.NewMockProviderWithText(validSleep)
	c := newCoordinator(t, provider, nil, 3)

	out, err := retry.Generate(context.Background(), c, sleepSpec("en"))
	require.NoError(t, err)

	assert.Equal(t, 1, out.Attempts)
	assert.Empty(t, out.Fixes)
	assert.Len(t, out.Value.Messages, 1)
	assert.Equal(t, []string{"Give sleep advice as JSON."}, provider.Prompts())
}

func TestGenerate_RepairedInOnePass(t *testing.T) {
	t.Parallel()

	provider := mocks.NewMockProviderWithText("```json\n{\"messages\":[\"tip\",],\"disclaimer\":\"x\"}\n```")
	c := newCoordinator(t, provider, nil, 3)

	out, err := retry.Generate(context.Background(), c, sleepSpec("en"))
	require.NoError(t, err)

	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, []string{repair.LabelStripFences, repair.LabelTrailingCommas}, out.Fixes)
}

func TestGenerate_FeedbackCarriesOnlyLastIssue(t *testing.T) {
	t.Parallel()

	provider := mocks.NewScriptedMockProvider(
		"",
		"Sorry, I cannot produce that.",
		`{"messages":[]}`,
		validSleep,
	)
	recorder := diagnostics.NewRecorder(discardLogger())
	c := newCoordinator(t, provider, recorder, 4)

	out, err := retry.Generate(context.Background(), c, sleepSpec("en"))
	require.NoError(t, err)
	assert.Equal(t, 4, out.Attempts)

	prompts := provider.Prompts()
	require.Len(t, prompts, 4)
	assert.NotContains(t, prompts[0], "Previous attempt issue")
	assert.Contains(t, prompts[1], "empty response")
	assert.Contains(t, prompts[2], string(repair.KindExtraPrefixSuffix))
	assert.Contains(t, prompts[2], "Sorry, I cannot produce that.")
	assert.NotContains(t, prompts[2], "empty response")
	assert.Contains(t, prompts[3], "sleep/no-messages")
	assert.NotContains(t, prompts[3], string(repair.KindExtraPrefixSuffix))

	assert.Equal(t, int64(1), recorder.Count("sleep", diagnostics.CategoryEmptyResponse))
	assert.Equal(t, int64(1), recorder.Count("sleep", diagnostics.CategoryDecode))
	assert.Equal(t, int64(1), recorder.Count("sleep", diagnostics.CategoryValidation))
	assert.Equal(t, int64(1), recorder.Count("sleep", diagnostics.CategorySuccess))
}

func TestGenerate_LanguageMismatch(t *testing.T) {
	t.Parallel()

	provider := mocks.NewScriptedMockProvider(
		validSleep,
		`{"messages":["Ложитесь спать в одно и то же время."]}`,
	)
	c := newCoordinator(t, provider, nil, 3)

	out, err := retry.Generate(context.Background(), c, sleepSpec("ru-RU"))
	require.NoError(t, err)

	assert.Equal(t, 2, out.Attempts)
	prompts := provider.Prompts()
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[1], "Cyrillic")
}

func TestGenerate_Exhausted(t *testing.T) {
	t.Parallel()

	provider := mocks.NewMockProviderWithText(`{"messages":`)
	recorder := diagnostics.NewRecorder(discardLogger())
	c := newCoordinator(t, provider, recorder, 3)

	out, err := retry.Generate(context.Background(), c, sleepSpec("en"))
	require.Error(t, err)

	var exhausted *retry.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.ErrorIs(t, err, generation.ErrExhaustedRetries)
	assert.False(t, errors.Is(err, generation.ErrDecode), "per-attempt errors must not escape")
	assert.True(t, generation.IsFallbackable(err))

	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 3, provider.CallCount(), "never exceeds the attempt budget")
	assert.NotEmpty(t, exhausted.Reason)
	assert.Equal(t, `{"messages":`, exhausted.Snippet)
	assert.Equal(t, int64(1), recorder.Count("sleep", diagnostics.CategoryExhausted))
}

func TestGenerate_SpecOverridesAttempts(t *testing.T) {
	t.Parallel()

	provider := mocks.NewMockProviderWithText("nope")
	c := newCoordinator(t, provider, nil, 5)

	spec := sleepSpec("en")
	spec.MaxAttempts = 2
	_, err := retry.Generate(context.Background(), c, spec)

	assert.ErrorIs(t, err, generation.ErrExhaustedRetries)
	assert.Equal(t, 2, provider.CallCount())
}

func TestGenerate_UpstreamFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("503 service unavailable")
	provider := mocks.NewMockProviderWithError(boom)
	c := newCoordinator(t, provider, nil, 3)

	_, err := retry.Generate(context.Background(), c, sleepSpec("en"))

	assert.ErrorIs(t, err, generation.ErrUpstreamFailure)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, provider.CallCount(), "provider errors are retried")
}

func TestGenerate_UpstreamThenSuccess(t *testing.T) {
	t.Parallel()

	provider := &mocks.MockProvider{
		Responses: []mocks.Response{{Err: errors.New("connection reset")}},
		Text:      validSleep,
	}
	c := newCoordinator(t, provider, nil, 3)

	out, err := retry.Generate(context.Background(), c, sleepSpec("en"))
	require.NoError(t, err)
	assert.Equal(t, 2, out.Attempts)
	assert.NotContains(t, provider.Prompts()[1], "Previous attempt issue")
}

func TestGenerate_Timeout(t *testing.T) {
	t.Parallel()

	t.Run("deadline during provider call", func(t *testing.T) {
		t.Parallel()

		provider := &mocks.MockProvider{
			GenerateFn: func(ctx context.Context, _ string) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			},
		}
		c := newCoordinator(t, provider, nil, 3)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := retry.Generate(ctx, c, sleepSpec("en"))
		assert.ErrorIs(t, err, generation.ErrTimeout)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 1, provider.CallCount(), "a timeout is not retried")
	})

	t.Run("context already done", func(t *testing.T) {
		t.Parallel()

		provider := mocks.NewMockProviderWithText(validSleep)
		c := newCoordinator(t, provider, nil, 3)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := retry.Generate(ctx, c, sleepSpec("en"))
		assert.ErrorIs(t, err, generation.ErrTimeout)
		assert.Equal(t, 0, provider.CallCount())
	})
}

func TestGenerate_InvalidSpec(t *testing.T) {
	t.Parallel()

	c := newCoordinator(t, mocks.NewMockProviderWithText(validSleep), nil, 1)
	_, err := retry.Generate(context.Background(), c, retry.Spec[domain.SleepAdvice]{Operation: "sleep"})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestNewCoordinator_RequiresProvider(t *testing.T) {
	t.Parallel()

	_, err := retry.NewCoordinator(nil, nil, nil, retry.Config{})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}
