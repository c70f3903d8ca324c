// Package gemini implements generation.Provider on top of Google's Gemini
// API.
//
// This package is an infrastructure adapter in the hexagonal architecture,
// connecting the coaching core to the external model without exposing the
// genai client to it. It performs exactly one GenerateContent call per
// Generate: retries, repair and caching are the caller's job.
//
// Error mapping:
//   - a response stopped by safety filters, or a blocked prompt, is
//     generation.ErrContentBlocked
//   - a response with no candidate text is returned as "" with a nil error,
//     so the retry loop can classify it as an empty response
//   - transport and API errors are returned wrapped, and are logged with
//     credentials redacted
package gemini
