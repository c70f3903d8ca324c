package repair

import (
	"errors"
	"fmt"

	"github.com/phrazzld/coach-api/internal/domain"
	"github.com/phrazzld/coach-api/internal/generation"
)

// ValidationError reports a decoded payload that breaks a structural or
// business rule. Kind is "<payload>/<rule>", e.g. "training/no-sets".
type ValidationError struct {
	Kind  string
	Issue string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation (%s): %s", e.Kind, e.Issue)
}

// Unwrap returns generation.ErrValidation.
func (e *ValidationError) Unwrap() error {
	return generation.ErrValidation
}

// ValidateTraining checks a training plan.
func ValidateTraining(p domain.TrainingPlan) error {
	return validationIssue("training", p.Validate())
}

// ValidateNutrition checks a nutrition plan.
func ValidateNutrition(p domain.NutritionPlan) error {
	return validationIssue("nutrition", p.Validate())
}

// ValidateSleep checks sleep advice.
func ValidateSleep(a domain.SleepAdvice) error {
	return validationIssue("sleep", a.Validate())
}

// ValidateChat checks a chat reply.
func ValidateChat(c domain.ChatReply) error {
	return validationIssue("chat", c.Validate())
}

// ValidateBundle checks every section of a bundle, reporting the first issue.
func ValidateBundle(b domain.Bundle) error {
	if err := ValidateTraining(b.Training); err != nil {
		return err
	}
	if err := ValidateNutrition(b.Nutrition); err != nil {
		return err
	}
	return ValidateSleep(b.Sleep)
}

func validationIssue(payload string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Kind: payload + "/" + rule(err), Issue: err.Error()}
}

func rule(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoWorkouts):
		return "no-workouts"
	case errors.Is(err, domain.ErrNoSets):
		return "no-sets"
	case errors.Is(err, domain.ErrNoMealDays):
		return "no-days"
	case errors.Is(err, domain.ErrUnnamedMeal):
		return "unnamed-meal"
	case errors.Is(err, domain.ErrNoIngredients):
		return "no-ingredients"
	case errors.Is(err, domain.ErrUnknownDay):
		return "unknown-day"
	case errors.Is(err, domain.ErrNoMessages):
		return "no-messages"
	case errors.Is(err, domain.ErrEmptyReply):
		return "empty-reply"
	}
	return "invalid"
}
