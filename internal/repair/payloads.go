package repair

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/phrazzld/coach-api/internal/domain"
)

// DecodeTraining repairs and decodes a training plan.
func DecodeTraining(raw string) (domain.TrainingPlan, Result, error) {
	return Decode[domain.TrainingPlan](raw, trainingSchema)
}

// DecodeNutrition repairs and decodes a nutrition plan. Meal kcal values that
// disagree with their macros by more than domain.MacroTolerance are recomputed.
func DecodeNutrition(raw string) (domain.NutritionPlan, Result, error) {
	return decodeNutrition(raw, domain.MacroTolerance)
}

func decodeNutrition(raw string, tolerance float64) (domain.NutritionPlan, Result, error) {
	plan, res, err := Decode[domain.NutritionPlan](raw, nutritionSchema)
	if err != nil {
		return plan, res, err
	}
	if plan.NormalizeMacros(tolerance) > 0 {
		res = res.with(res.Text, LabelNormalizeMacros)
	}
	return plan, res, nil
}

// DecodeSleep repairs and decodes sleep advice.
func DecodeSleep(raw string) (domain.SleepAdvice, Result, error) {
	return Decode[domain.SleepAdvice](raw, sleepSchema)
}

// DecodeChat repairs and decodes a chat reply.
func DecodeChat(raw string) (domain.ChatReply, Result, error) {
	return Decode[domain.ChatReply](raw, chatSchema)
}

// DecodeBundle decodes a combined response. The preferred form carries the
// TRAINING_JSON, NUTRITION_JSON and SLEEP_JSON markers each followed by one
// object; a single object with "training", "nutrition" and "sleep" keys is
// accepted as well. Bundle meals use the wider domain.MealMacroTolerance.
func DecodeBundle(raw string) (domain.Bundle, Result, error) {
	sections := ExtractSections(raw)
	if len(sections) == 0 {
		return decodeBundleObject(raw)
	}

	var bundle domain.Bundle
	for _, m := range SectionMarkers {
		if _, ok := sections[m]; !ok {
			return bundle, Result{Text: raw}, &DecodeError{
				Kind: KindMissingField,
				Err:  fmt.Errorf("missing %s section", m),
				Text: raw,
			}
		}
	}
	return decodeSections(bundle, sections[MarkerTraining], sections[MarkerNutrition], sections[MarkerSleep])
}

type bundleObject struct {
	Training  json.RawMessage `json:"training"`
	Nutrition json.RawMessage `json:"nutrition"`
	Sleep     json.RawMessage `json:"sleep"`
}

func decodeBundleObject(raw string) (domain.Bundle, Result, error) {
	var bundle domain.Bundle
	parts, res, err := Decode[bundleObject](raw, nil)
	if err != nil {
		return bundle, res, err
	}
	for _, part := range []struct {
		name string
		raw  json.RawMessage
	}{{"training", parts.Training}, {"nutrition", parts.Nutrition}, {"sleep", parts.Sleep}} {
		if len(part.raw) == 0 {
			return bundle, res, &DecodeError{Kind: KindMissingField, Err: fmt.Errorf("missing %q section", part.name), Text: res.Text}
		}
	}

	bundle, sectionsRes, err := decodeSections(bundle, string(parts.Training), string(parts.Nutrition), string(parts.Sleep))
	if err != nil {
		return bundle, sectionsRes, err
	}
	for _, l := range sectionsRes.fixes {
		res.fixes = addLabel(res.fixes, l)
	}
	return bundle, res, nil
}

func decodeSections(bundle domain.Bundle, training, nutrition, sleep string) (domain.Bundle, Result, error) {
	var (
		fixes []string
		texts []string
	)
	merge := func(marker string, r Result) {
		for _, l := range r.fixes {
			fixes = addLabel(fixes, l)
		}
		texts = append(texts, marker+"\n"+r.Text)
	}
	result := func() Result {
		return Result{Text: strings.Join(texts, "\n"), fixes: fixes}
	}

	var (
		res Result
		err error
	)
	if bundle.Training, res, err = DecodeTraining(training); err != nil {
		return bundle, res, err
	}
	merge(MarkerTraining, res)
	if bundle.Nutrition, res, err = decodeNutrition(nutrition, domain.MealMacroTolerance); err != nil {
		return bundle, res, err
	}
	merge(MarkerNutrition, res)
	if bundle.Sleep, res, err = DecodeSleep(sleep); err != nil {
		return bundle, res, err
	}
	merge(MarkerSleep, res)
	return bundle, result(), nil
}
