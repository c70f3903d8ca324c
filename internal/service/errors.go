package service

import (
	"errors"
	"fmt"
)

// Common service errors - sentinel errors callers check with errors.Is().
// The API layer maps ErrInvalidRequest to HTTP 400 and everything else to 500.
var (
	// ErrInvalidRequest indicates a generation request the service refuses to run.
	ErrInvalidRequest = errors.New("invalid generation request")
)

// PlanServiceError wraps errors from the plan service with context.
type PlanServiceError struct {
	// Operation is the operation that failed (e.g., "training", "prefetch")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for PlanServiceError.
func (e *PlanServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("plan service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("plan service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *PlanServiceError) Unwrap() error {
	return e.Err
}

// NewPlanServiceError creates a new PlanServiceError. Invalid requests are
// returned as ErrInvalidRequest wrapped with the message only.
func NewPlanServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInvalidRequest) {
		return err
	}
	return &PlanServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
