// Package repair turns the quasi-JSON text produced by a language model into
// decoded, validated domain payloads.
//
// Repair runs a fixed sequence of small, named heuristics. Each heuristic is a
// pure string-to-string function that targets one failure mode observed in
// model output (markdown fences, surrounding prose, trailing commas, single
// quotes, bare keys, misnested closers, truncation). Heuristics that change the
// text record their label in the Result so callers can report which fixes fired.
//
// Decode builds on Repair: it decodes the repaired text, falls back to a single
// safe truncation when decoding still fails, checks the shape against an
// embedded JSON schema and finally unmarshals into the typed payload. Decode
// failures are classified into a small closed set of kinds so the retry loop
// can phrase precise feedback for the next prompt.
package repair
