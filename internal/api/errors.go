package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/coach-api/internal/api/shared"
	"github.com/phrazzld/coach-api/internal/domain"
	"github.com/phrazzld/coach-api/internal/service"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		maxErr    *http.MaxBytesError
		validErrs validator.ValidationErrors
	)
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidOperation),
		errors.As(err, &syntaxErr),
		errors.As(err, &typeErr),
		errors.As(err, &validErrs):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err that carries no
// internal detail.
func GetSafeErrorMessage(err error) string {
	var validErrs validator.ValidationErrors
	switch {
	case err == nil:
		return "An unexpected error occurred"
	case errors.As(err, &validErrs):
		return SanitizeValidationError(err)
	case errors.Is(err, service.ErrInvalidRequest):
		// The service's own messages are written for clients.
		return strings.TrimPrefix(err.Error(), service.ErrInvalidRequest.Error()+": ")
	case MapErrorToStatusCode(err) == http.StatusRequestEntityTooLarge:
		return "Request body too large"
	case MapErrorToStatusCode(err) == http.StatusBadRequest:
		return "Invalid request format"
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator errors into a short message naming
// the first offending field.
func SanitizeValidationError(err error) string {
	var validErrs validator.ValidationErrors
	if !errors.As(err, &validErrs) || len(validErrs) == 0 {
		return "Validation error"
	}
	fe := validErrs[0]
	return fmt.Sprintf("Invalid %s: %s", fieldPath(fe.Namespace()), getValidationTagMessage(fe.Tag()))
}

// fieldPath drops the top-level struct name from a validator namespace,
// e.g. "ChatRequest.PlanRequest.Profile.Age" becomes "profile.age".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	out := parts[:0]
	for _, p := range parts {
		// Embedded request structs do not appear in the JSON body.
		if p == "" || p == "PlanRequest" {
			continue
		}
		out = append(out, strings.ToLower(p[:1])+p[1:])
	}
	return strings.Join(out, ".")
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte", "gt":
		return "too small"
	case "max", "lte", "lt":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the status and safe message for err and logs the
// redacted detail.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatusCode(err)
	shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err)
}
