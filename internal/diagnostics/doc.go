// Package diagnostics collects one record per retry-loop stage transition.
//
// A Recorder keeps lock-free counters keyed by operation and category, a
// bounded append-only log of the most recent records, and forwards every
// record to a structured logger and any registered handlers. Records are never
// modified once written; callers read them through Snapshot.
package diagnostics
