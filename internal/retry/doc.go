// Package retry runs the bounded attempt loop around a text-generation
// provider.
//
// Each attempt asks the provider for text, repairs and decodes it, validates
// the payload and checks the script of its user-facing strings. A failed
// attempt becomes a single feedback note for the next prompt. Decode,
// validation, language and empty-response failures never leave the loop;
// callers only see generation.ErrTimeout, generation.ErrUpstreamFailure or an
// *ExhaustedError.
package retry
