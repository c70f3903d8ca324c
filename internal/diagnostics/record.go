package diagnostics

import (
	"context"
	"time"
)

// Stage is a step of a single generation attempt.
type Stage string

// Attempt stages, in the order an attempt passes through them. StageSuccess,
// StageRetry and StageExhausted are terminal for one attempt.
const (
	StageAwaitingText     Stage = "awaiting_text"
	StageDecoding         Stage = "decoding"
	StageValidating       Stage = "validating"
	StageLanguageChecking Stage = "language_checking"
	StageSuccess          Stage = "success"
	StageRetry            Stage = "retry"
	StageExhausted        Stage = "exhausted"
)

// Record categories.
const (
	CategoryAttempt          = "attempt"
	CategoryEmptyResponse    = "empty_response"
	CategoryDecode           = "decode"
	CategoryRepaired         = "repaired"
	CategoryValidation       = "validation"
	CategoryLanguageMismatch = "language_mismatch"
	CategoryUpstream         = "upstream"
	CategoryTimeout          = "timeout"
	CategorySuccess          = "success"
	CategoryExhausted        = "exhausted"
	CategoryFallback         = "fallback"
)

// Record is one diagnostic entry.
type Record struct {
	Time      time.Time `json:"time"`
	Operation string    `json:"operation"`
	RequestID string    `json:"requestId,omitempty"`
	Attempt   int       `json:"attempt"`
	Stage     Stage     `json:"stage"`
	Category  string    `json:"category"`
	Message   string    `json:"message,omitempty"`
	Snippet   string    `json:"snippet,omitempty"`
}

// Sink receives diagnostic records. Implementations must be safe for
// concurrent use and must not block the caller for long.
type Sink interface {
	Record(ctx context.Context, rec Record)
}

// Handler is notified of every record a Recorder accepts.
type Handler interface {
	HandleRecord(ctx context.Context, rec Record) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, rec Record) error

// HandleRecord calls f(ctx, rec).
func (f HandlerFunc) HandleRecord(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}

// Discard is a Sink that drops every record.
var Discard Sink = discard{}

type discard struct{}

func (discard) Record(context.Context, Record) {}
