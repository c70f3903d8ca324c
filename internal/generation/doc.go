// Package generation defines the boundary between the coaching core and the
// external text-generation provider. The Provider interface is the single
// operation the core needs from an LLM: turn a prompt into text. Retries,
// repair and caching all live outside the provider, in the retry and flight
// packages.
package generation
