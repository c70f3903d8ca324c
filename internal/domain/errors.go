// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrNoWorkouts is returned when a training plan has no workouts.
	ErrNoWorkouts = errors.New("training plan has no workouts")

	// ErrNoSets is returned when a workout has no sets.
	ErrNoSets = errors.New("workout has no sets")

	// ErrNoMealDays is returned when a nutrition plan has no days with meals.
	ErrNoMealDays = errors.New("nutrition plan has no days")

	// ErrUnnamedMeal is returned when a meal has an empty name.
	ErrUnnamedMeal = errors.New("meal has no name")

	// ErrNoIngredients is returned when a meal lists no ingredients.
	ErrNoIngredients = errors.New("meal has no ingredients")

	// ErrUnknownDay is returned when a nutrition plan uses a day key outside Mon..Sun.
	ErrUnknownDay = errors.New("unknown day key")

	// ErrNoMessages is returned when advice carries no messages.
	ErrNoMessages = errors.New("advice has no messages")

	// ErrEmptyReply is returned when a chat reply has no message text.
	ErrEmptyReply = errors.New("chat reply is empty")

	// ErrInvalidOperation is returned for an unknown generation operation.
	ErrInvalidOperation = errors.New("invalid operation")
)
