package generation

import "errors"

// Common errors returned by the generation pipeline.
//
// ErrEmptyResponse, ErrDecode, ErrValidation and ErrLanguageMismatch describe a
// single bad attempt and are consumed by the retry loop as feedback. ErrTimeout,
// ErrExhaustedRetries and ErrUpstreamFailure escape to the calling operation,
// which substitutes fallback data.
var (
	// ErrEmptyResponse is returned when the provider answers with no text
	ErrEmptyResponse = errors.New("empty response from language model")

	// ErrDecode is returned when the response cannot be repaired into decodable JSON
	ErrDecode = errors.New("failed to decode language model response")

	// ErrValidation is returned when a decoded payload breaks a structural or business rule
	ErrValidation = errors.New("language model response failed validation")

	// ErrLanguageMismatch is returned when user-facing text is in the wrong writing system
	ErrLanguageMismatch = errors.New("language model response uses the wrong script")

	// ErrTimeout is returned when the overall operation deadline elapses
	ErrTimeout = errors.New("generation timed out")

	// ErrExhaustedRetries is returned when every attempt produced an unusable response
	ErrExhaustedRetries = errors.New("generation attempts exhausted")

	// ErrUpstreamFailure is returned when the provider itself keeps failing
	ErrUpstreamFailure = errors.New("language model provider failure")

	// ErrContentBlocked is returned when the provider blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrInvalidConfig is returned when the provider configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)

// IsFallbackable reports whether err is one of the failures a calling
// operation must absorb by serving deterministic fallback data.
func IsFallbackable(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrExhaustedRetries) ||
		errors.Is(err, ErrUpstreamFailure) ||
		errors.Is(err, ErrContentBlocked)
}
