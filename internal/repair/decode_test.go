package repair

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/phrazzld/coach-api/internal/domain"
	"github.com/phrazzld/coach-api/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	trainingFixture  = `{"weekIndex":0,"workouts":[{"id":"w1","date":"2025-01-06","sets":[{"exerciseId":"squat","reps":8,"weightKg":60.0,"rpe":7.5}]}]}`
	nutritionFixture = `{"weekIndex":0,"days":{"Mon":[{"name":"Oats","macros":{"kcal":400,"protein":20,"fat":10,"carbs":57},"ingredients":[{"name":"oats","amount":80,"unit":"g"}]}]}}`
	sleepFixture     = `{"messages":["tip"],"disclaimer":"x"}`
)

func TestDecodeTraining_Valid(t *testing.T) {
	t.Parallel()

	plan, res, err := DecodeTraining(trainingFixture)
	require.NoError(t, err)

	assert.False(t, res.Changed())
	require.Len(t, plan.Workouts, 1)
	require.Len(t, plan.Workouts[0].Sets, 1)
	set := plan.Workouts[0].Sets[0]
	assert.Equal(t, "squat", set.ExerciseID)
	assert.Equal(t, 8, set.Reps)
	assert.InDelta(t, 60.0, set.WeightKg, 0.001)
	assert.InDelta(t, 7.5, set.RPE, 0.001)
}

func TestDecodeSleep_FencedTrailingComma(t *testing.T) {
	t.Parallel()

	advice, res, err := DecodeSleep("```json\n{\"messages\":[\"tip\",],\"disclaimer\":\"x\"}\n```")
	require.NoError(t, err)

	assert.Equal(t, []string{"tip"}, advice.Messages)
	assert.Equal(t, []string{LabelStripFences, LabelTrailingCommas}, res.Fixes())
}

func TestDecodeNutrition_NormalizesMacros(t *testing.T) {
	t.Parallel()

	raw := `{"days":{"Tue":[{"name":"Bowl","macros":{"kcal":1,"protein":35,"fat":12,"carbs":55},"ingredients":[{"name":"rice"}]}]}}`
	plan, res, err := DecodeNutrition(raw)
	require.NoError(t, err)

	assert.InDelta(t, 488.0, plan.Days[domain.Tue][0].Macros.Kcal, 0.001)
	assert.Equal(t, []string{LabelNormalizeMacros}, res.Fixes())
}

func TestDecode_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want DecodeKind
	}{
		{name: "empty", raw: "   ", want: KindIncomplete},
		{name: "refusal prose", raw: "I can't help with that.", want: KindExtraPrefixSuffix},
		{name: "missing required key", raw: `{"weekIndex":0}`, want: KindMissingField},
		{name: "wrong value type", raw: `{"workouts":[{"id":"w1","sets":[{"exerciseId":"squat","reps":"eight"}]}]}`, want: KindUnexpectedToken},
		{name: "missing set field after truncation", raw: `{"workouts":[{"id":"w1","sets":[{"exerciseId":"squat"},{"exerciseId":"bench","re`, want: KindMissingField},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := DecodeTraining(tc.raw)
			require.Error(t, err)

			var decErr *DecodeError
			require.True(t, errors.As(err, &decErr), "expected *DecodeError, got %T", err)
			assert.Equal(t, tc.want, decErr.Kind)
			assert.ErrorIs(t, err, generation.ErrDecode)
			assert.NotEmpty(t, decErr.Kind.Hint())
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	syntaxErr := func(text string) error {
		var v any
		err := json.Unmarshal([]byte(text), &v)
		require.Error(t, err)
		return err
	}

	tests := []struct {
		name string
		text string
		want DecodeKind
	}{
		{name: "cut off", text: `{"a":1`, want: KindIncomplete},
		{name: "trailing comma", text: `{"a":1,}`, want: KindTrailingComma},
		{name: "bare key", text: `{a:1}`, want: KindMissingQuote},
		{name: "text after object", text: `{"a":1} x`, want: KindExtraPrefixSuffix},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, classify(tc.text, tc.text, syntaxErr(tc.text)))
		})
	}
}

func TestDecodeBundle_Markers(t *testing.T) {
	t.Parallel()

	raw := "TRAINING_JSON\n" + trainingFixture +
		"\nNUTRITION_JSON\n" + nutritionFixture +
		"\nSLEEP_JSON\n" + sleepFixture

	bundle, res, err := DecodeBundle(raw)
	require.NoError(t, err)

	assert.Len(t, bundle.Training.Workouts, 1)
	assert.Len(t, bundle.Sleep.Messages, 1)
	assert.Len(t, bundle.Nutrition.Days[domain.Mon], 1)
	assert.False(t, res.Changed())
	assert.NoError(t, ValidateBundle(bundle))
}

func TestDecodeBundle_StrayBraceInPreamble(t *testing.T) {
	t.Parallel()

	raw := "Here's your plan :-{\nTRAINING_JSON\n" + trainingFixture +
		"\nNUTRITION_JSON\n" + nutritionFixture +
		"\nSLEEP_JSON\n" + sleepFixture

	bundle, _, err := DecodeBundle(raw)
	require.NoError(t, err)
	assert.Len(t, bundle.Training.Workouts, 1)
	assert.Len(t, bundle.Sleep.Messages, 1)
}

func TestDecodeBundle_NoisySections(t *testing.T) {
	t.Parallel()

	raw := "Here is the week.\nTRAINING_JSON\n```json\n" + trainingFixture + "\n```\n" +
		"NUTRITION_JSON: " + nutritionFixture + "\n" +
		"SLEEP_JSON\n{\"messages\":[\"tip\",],\"disclaimer\":\"x\"}\nGood luck!"

	bundle, res, err := DecodeBundle(raw)
	require.NoError(t, err)

	assert.Len(t, bundle.Sleep.Messages, 1)
	assert.Contains(t, res.Fixes(), LabelTrailingCommas)
}

func TestDecodeBundle_SingleObject(t *testing.T) {
	t.Parallel()

	raw := `{"training":` + trainingFixture + `,"nutrition":` + nutritionFixture + `,"sleep":` + sleepFixture + `}`

	bundle, _, err := DecodeBundle(raw)
	require.NoError(t, err)
	assert.Len(t, bundle.Training.Workouts, 1)
	assert.Equal(t, "x", bundle.Sleep.Disclaimer)
}

func TestDecodeBundle_MissingSection(t *testing.T) {
	t.Parallel()

	raw := "TRAINING_JSON\n" + trainingFixture + "\nSLEEP_JSON\n" + sleepFixture

	_, _, err := DecodeBundle(raw)
	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, KindMissingField, decErr.Kind)
	assert.Contains(t, decErr.Error(), MarkerNutrition)
}

func TestExtractSections(t *testing.T) {
	t.Parallel()

	t.Run("marker inside a string is ignored", func(t *testing.T) {
		t.Parallel()

		raw := `TRAINING_JSON {"note":"then SLEEP_JSON {x}","n":{"m":1}} SLEEP_JSON {"messages":["a}"]}`
		got := ExtractSections(raw)

		assert.Equal(t, `{"note":"then SLEEP_JSON {x}","n":{"m":1}}`, got[MarkerTraining])
		assert.Equal(t, `{"messages":["a}"]}`, got[MarkerSleep])
		assert.NotContains(t, got, MarkerNutrition)
	})

	t.Run("cut off section runs to end", func(t *testing.T) {
		t.Parallel()

		got := ExtractSections(`SLEEP_JSON {"messages":["a"`)
		assert.Equal(t, `{"messages":["a"`, got[MarkerSleep])
	})

	t.Run("marker with no object", func(t *testing.T) {
		t.Parallel()

		got := ExtractSections("TRAINING_JSON\nNUTRITION_JSON {\"days\":{}}")
		assert.NotContains(t, got, MarkerTraining)
		assert.Equal(t, `{"days":{}}`, got[MarkerNutrition])
	})

	t.Run("no markers", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, ExtractSections(`{"training":{}}`))
	})

	t.Run("unclosed brace in leading prose", func(t *testing.T) {
		t.Parallel()

		raw := "Here's your plan :-{\nTRAINING_JSON\n{\"workouts\":[]}\nSLEEP_JSON\n{\"messages\":[\"a\"]}"
		got := ExtractSections(raw)
		assert.Equal(t, `{"workouts":[]}`, got[MarkerTraining])
		assert.Equal(t, `{"messages":["a"]}`, got[MarkerSleep])
	})

	t.Run("closed object before markers is skipped", func(t *testing.T) {
		t.Parallel()

		got := ExtractSections(`{"note":"TRAINING_JSON"} SLEEP_JSON {"messages":["a"]}`)
		assert.NotContains(t, got, MarkerTraining)
		assert.Equal(t, `{"messages":["a"]}`, got[MarkerSleep])
	})
}

func TestValidators(t *testing.T) {
	t.Parallel()

	err := ValidateTraining(domain.TrainingPlan{Workouts: []domain.Workout{{ID: "w1"}}})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "training/no-sets", verr.Kind)
	assert.ErrorIs(t, err, generation.ErrValidation)

	err = ValidateSleep(domain.SleepAdvice{Messages: []string{"  "}})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "sleep/no-messages", verr.Kind)

	assert.NoError(t, ValidateChat(domain.ChatReply{Message: "Rest well."}))
}
