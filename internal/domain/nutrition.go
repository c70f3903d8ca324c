package domain

import (
	"fmt"
	"math"
)

// DayKey is a weekday key of a meal plan.
type DayKey string

// Meal plan day keys.
const (
	Mon DayKey = "Mon"
	Tue DayKey = "Tue"
	Wed DayKey = "Wed"
	Thu DayKey = "Thu"
	Fri DayKey = "Fri"
	Sat DayKey = "Sat"
	Sun DayKey = "Sun"
)

// DayKeys is the fixed, ordered set of meal plan days.
var DayKeys = []DayKey{Mon, Tue, Wed, Thu, Fri, Sat, Sun}

// Macro tolerances in kcal. A stated kcal outside the tolerance of the value
// computed from protein, carbs and fat is replaced by the computed value.
const (
	MacroTolerance     = 20
	MealMacroTolerance = 40
)

// NutritionPlan is one week of meals keyed by day.
type NutritionPlan struct {
	WeekIndex int               `json:"weekIndex"`
	Days      map[DayKey][]Meal `json:"days"`
	Notes     string            `json:"notes,omitempty"`
}

// Meal is a named meal with its ingredients and macros.
type Meal struct {
	Name        string       `json:"name"`
	Macros      Macros       `json:"macros"`
	Ingredients []Ingredient `json:"ingredients"`
}

// Ingredient is one line of a meal's shopping list.
type Ingredient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount,omitempty"`
	Unit   string  `json:"unit,omitempty"`
}

// Macros are the energy and macronutrient values of a meal.
type Macros struct {
	Kcal    float64 `json:"kcal"`
	Protein float64 `json:"protein"`
	Fat     float64 `json:"fat"`
	Carbs   float64 `json:"carbs"`
}

// ComputedKcal returns 4·protein + 4·carbs + 9·fat.
func (m Macros) ComputedKcal() float64 {
	return 4*m.Protein + 4*m.Carbs + 9*m.Fat
}

// Normalize recomputes Kcal when the stated value differs from the computed
// one by more than tolerance. It reports whether Kcal was changed.
func (m Macros) Normalize(tolerance float64) (Macros, bool) {
	computed := m.ComputedKcal()
	if math.Abs(m.Kcal-computed) <= tolerance {
		return m, false
	}
	m.Kcal = math.Round(computed)
	return m, true
}

// Validate checks that the plan has at least one known day, and every meal of
// every day is named and lists at least one ingredient.
func (p *NutritionPlan) Validate() error {
	days := 0
	for _, day := range DayKeys {
		meals, ok := p.Days[day]
		if !ok {
			continue
		}
		if len(meals) == 0 {
			continue
		}
		days++
		for i, meal := range meals {
			if meal.Name == "" {
				return fmt.Errorf("%w: %s meal %d", ErrUnnamedMeal, day, i)
			}
			if len(meal.Ingredients) == 0 {
				return fmt.Errorf("%w: %s meal %q", ErrNoIngredients, day, meal.Name)
			}
		}
	}
	for key := range p.Days {
		if !isDayKey(key) {
			return fmt.Errorf("%w: %q", ErrUnknownDay, key)
		}
	}
	if days == 0 {
		return ErrNoMealDays
	}
	return nil
}

// NormalizeMacros applies the per-meal macro rule to every meal in the plan
// and returns the number of meals whose kcal was recomputed.
func (p *NutritionPlan) NormalizeMacros(tolerance float64) int {
	changed := 0
	for day, meals := range p.Days {
		for i := range meals {
			var ok bool
			meals[i].Macros, ok = meals[i].Macros.Normalize(tolerance)
			if ok {
				changed++
			}
		}
		p.Days[day] = meals
	}
	return changed
}

// Texts returns the user-facing strings of the plan in day order.
func (p *NutritionPlan) Texts() []string {
	var out []string
	for _, day := range DayKeys {
		for _, meal := range p.Days[day] {
			out = append(out, meal.Name)
			for _, ing := range meal.Ingredients {
				out = append(out, ing.Name)
			}
		}
	}
	if p.Notes != "" {
		out = append(out, p.Notes)
	}
	return out
}

func isDayKey(k DayKey) bool {
	for _, d := range DayKeys {
		if d == k {
			return true
		}
	}
	return false
}
