// Package fallback builds deterministic offline payloads. They are served
// when generation times out, exhausts its attempts or the provider keeps
// failing, so a caller always receives a structurally valid response. The
// same request always yields the same payload.
package fallback

import (
	"fmt"
	"math"
	"strings"

	"github.com/phrazzld/coach-api/internal/domain"
)

type exercise struct {
	id       string
	reps     int
	loadFrac float64 // fraction of body weight, 0 for body-weight moves
}

var (
	barbellExercises = []exercise{
		{id: "back_squat", reps: 8, loadFrac: 0.6},
		{id: "bench_press", reps: 8, loadFrac: 0.45},
		{id: "barbell_row", reps: 10, loadFrac: 0.4},
		{id: "romanian_deadlift", reps: 10, loadFrac: 0.5},
	}
	bodyweightExercises = []exercise{
		{id: "air_squat", reps: 15},
		{id: "push_up", reps: 12},
		{id: "inverted_row", reps: 10},
		{id: "glute_bridge", reps: 15},
	}
)

const setsPerExercise = 3

// Training returns a full-body plan with one workout per training day.
// Loads rise by 2.5 kg per week.
func Training(req domain.GenerationRequest) domain.TrainingPlan {
	c := catalogFor(req.Locale)
	p := req.Profile

	days := clamp(p.DaysPerWeek, 1, 7)
	exercises := barbellExercises
	if usesBodyweight(p.Equipment) {
		exercises = bodyweightExercises
	}
	strength := strings.Contains(strings.ToLower(p.Goal), "strength")

	plan := domain.TrainingPlan{WeekIndex: req.WeekIndex, Workouts: make([]domain.Workout, 0, days)}
	for d := 1; d <= days; d++ {
		w := domain.Workout{
			ID:    fmt.Sprintf("fallback-w%d-d%d", req.WeekIndex, d),
			Title: fmt.Sprintf(c.workoutTitle, d),
			Notes: c.workoutNotes,
		}
		for _, ex := range exercises {
			reps := ex.reps
			if strength && ex.loadFrac > 0 {
				reps = 5
			}
			load := 0.0
			if ex.loadFrac > 0 && p.WeightKg > 0 {
				load = roundTo(p.WeightKg*ex.loadFrac, 2.5) + 2.5*float64(max(req.WeekIndex, 0))
			}
			for s := 0; s < setsPerExercise; s++ {
				w.Sets = append(w.Sets, domain.WorkoutSet{ExerciseID: ex.id, Reps: reps, WeightKg: load, RPE: 7})
			}
		}
		plan.Workouts = append(plan.Workouts, w)
	}
	return plan
}

type mealTemplate struct {
	ingredients []domain.Ingredient
	protein     float64
	fat         float64
	carbs       float64
}

func mealTemplates(vegetarian bool) [3]mealTemplate {
	protein := domain.Ingredient{Name: "chicken", Amount: 150, Unit: "g"}
	if vegetarian {
		protein = domain.Ingredient{Name: "tofu", Amount: 200, Unit: "g"}
	}
	return [3]mealTemplate{
		{
			ingredients: []domain.Ingredient{{Name: "oats", Amount: 80, Unit: "g"}, {Name: "milk", Amount: 250, Unit: "ml"}, {Name: "banana", Amount: 1, Unit: "pcs"}},
			protein:     20, fat: 10, carbs: 75,
		},
		{
			ingredients: []domain.Ingredient{{Name: "rice", Amount: 100, Unit: "g"}, protein, {Name: "vegetables", Amount: 200, Unit: "g"}},
			protein:     40, fat: 12, carbs: 85,
		},
		{
			ingredients: []domain.Ingredient{{Name: "potatoes", Amount: 250, Unit: "g"}, {Name: "eggs", Amount: 3, Unit: "pcs"}, {Name: "beans", Amount: 150, Unit: "g"}},
			protein:     35, fat: 18, carbs: 70,
		},
	}
}

// Nutrition returns three meals for every day Mon..Sun. Portions scale with
// body weight and every meal's kcal matches its macros exactly.
func Nutrition(req domain.GenerationRequest) domain.NutritionPlan {
	c := catalogFor(req.Locale)
	p := req.Profile

	scale := 1.0
	if p.WeightKg > 0 {
		scale = math.Min(math.Max(p.WeightKg/70, 0.7), 1.5)
	}
	templates := mealTemplates(isVegetarian(p.DietaryRestrictions))

	plan := domain.NutritionPlan{
		WeekIndex: req.WeekIndex,
		Days:      make(map[domain.DayKey][]domain.Meal, len(domain.DayKeys)),
		Notes:     c.planNotes,
	}
	for _, day := range domain.DayKeys {
		meals := make([]domain.Meal, 0, len(templates))
		for i, t := range templates {
			m := domain.Macros{
				Protein: math.Round(t.protein * scale),
				Fat:     math.Round(t.fat * scale),
				Carbs:   math.Round(t.carbs * scale),
			}
			m.Kcal = m.ComputedKcal()

			ings := make([]domain.Ingredient, len(t.ingredients))
			for j, ing := range t.ingredients {
				ings[j] = domain.Ingredient{Name: c.ingredients[ing.Name], Amount: math.Round(ing.Amount * scale), Unit: ing.Unit}
			}
			meals = append(meals, domain.Meal{Name: c.meals[i], Macros: m, Ingredients: ings})
		}
		plan.Days[day] = meals
	}
	return plan
}

// Sleep returns general sleep hygiene advice, with an extra note for
// profiles that report less than seven hours.
func Sleep(req domain.GenerationRequest) domain.SleepAdvice {
	c := catalogFor(req.Locale)
	messages := append([]string(nil), c.sleep...)
	if h := req.Profile.SleepHours; h > 0 && h < 7 {
		messages = append(messages, c.shortSleep)
	}
	return domain.SleepAdvice{Messages: messages, Disclaimer: c.disclaimer}
}

// Chat returns a reply explaining that the coach is unavailable.
func Chat(req domain.GenerationRequest) domain.ChatReply {
	c := catalogFor(req.Locale)
	return domain.ChatReply{
		Message:     c.chatReply,
		Suggestions: append([]string(nil), c.suggestions...),
	}
}

// Bundle combines the training, nutrition and sleep fallbacks.
func Bundle(req domain.GenerationRequest) domain.Bundle {
	return domain.Bundle{
		Training:  Training(req),
		Nutrition: Nutrition(req),
		Sleep:     Sleep(req),
	}
}

func usesBodyweight(equipment string) bool {
	e := strings.ToLower(strings.TrimSpace(equipment))
	return e == "" || strings.Contains(e, "bodyweight") || strings.Contains(e, "none") || strings.Contains(e, "home")
}

func isVegetarian(restrictions []string) bool {
	for _, r := range restrictions {
		r = strings.ToLower(r)
		if strings.Contains(r, "vegetarian") || strings.Contains(r, "vegan") || strings.Contains(r, "no meat") {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func roundTo(v, step float64) float64 {
	return math.Round(v/step) * step
}
