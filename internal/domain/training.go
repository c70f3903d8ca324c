package domain

import "fmt"

// TrainingPlan is one week of workouts.
type TrainingPlan struct {
	WeekIndex int       `json:"weekIndex"`
	Workouts  []Workout `json:"workouts"`
}

// Workout is a single session on a given date.
type Workout struct {
	ID    string       `json:"id"`
	Date  string       `json:"date"`
	Title string       `json:"title,omitempty"`
	Notes string       `json:"notes,omitempty"`
	Sets  []WorkoutSet `json:"sets"`
}

// WorkoutSet is one prescribed set of an exercise.
type WorkoutSet struct {
	ExerciseID string  `json:"exerciseId"`
	Reps       int     `json:"reps"`
	WeightKg   float64 `json:"weightKg"`
	RPE        float64 `json:"rpe,omitempty"`
}

// Validate checks that the plan has at least one workout and every workout
// has at least one set.
func (p *TrainingPlan) Validate() error {
	if len(p.Workouts) == 0 {
		return ErrNoWorkouts
	}
	for i, w := range p.Workouts {
		if len(w.Sets) == 0 {
			return fmt.Errorf("%w: workout %d (%s)", ErrNoSets, i, w.ID)
		}
	}
	return nil
}

// Texts returns the user-facing strings of the plan.
func (p *TrainingPlan) Texts() []string {
	var out []string
	for _, w := range p.Workouts {
		if w.Title != "" {
			out = append(out, w.Title)
		}
		if w.Notes != "" {
			out = append(out, w.Notes)
		}
	}
	return out
}
