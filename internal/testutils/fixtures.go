package testutils

import "github.com/phrazzld/coach-api/internal/domain"

// Model responses that decode and validate without repair.
const (
	TrainingJSON  = `{"weekIndex":0,"workouts":[{"id":"w1","date":"2025-01-06","title":"Lower body","sets":[{"exerciseId":"squat","reps":8,"weightKg":60,"rpe":7.5}]}]}`
	NutritionJSON = `{"weekIndex":0,"days":{"Mon":[{"name":"Oats","macros":{"kcal":400,"protein":20,"fat":10,"carbs":57},"ingredients":[{"name":"oats","amount":80,"unit":"g"}]}]}}`
	SleepJSON     = `{"messages":["Keep a regular bedtime."],"disclaimer":"Not medical advice."}`
	ChatJSON      = `{"message":"Add five kilos next week.","suggestions":["Sleep eight hours"]}`
	BundleJSON    = `{"training":` + TrainingJSON + `,"nutrition":` + NutritionJSON + `,"sleep":` + SleepJSON + `}`
)

// ProfileJSON is Profile encoded as an API request body fragment.
const ProfileJSON = `{"age":30,"sex":"female","heightCm":170,"weightKg":65,"goal":"strength","experience":"intermediate","daysPerWeek":3}`

// ProfileYAML is Profile as a coachctl profile file.
const ProfileYAML = `age: 30
sex: female
heightCm: 170
weightKg: 65
goal: strength
experience: intermediate
daysPerWeek: 3
`

// Profile returns a valid athlete profile.
func Profile() domain.Profile {
	return domain.Profile{
		Age:         30,
		Sex:         "female",
		HeightCm:    170,
		WeightKg:    65,
		Goal:        "strength",
		Experience:  "intermediate",
		DaysPerWeek: 3,
	}
}

// Request returns an English request for op and week built on Profile.
func Request(op domain.Operation, week int) domain.GenerationRequest {
	req := domain.GenerationRequest{
		Operation: op,
		Profile:   Profile(),
		WeekIndex: week,
		Locale:    "en",
	}
	if op == domain.OperationChat {
		req.Message = "How heavy should I squat?"
	}
	return req
}
