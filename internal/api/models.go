package api

import (
	"github.com/phrazzld/coach-api/internal/diagnostics"
	"github.com/phrazzld/coach-api/internal/domain"
	"github.com/phrazzld/coach-api/internal/service"
)

// PlanRequest is the body of the training, nutrition, sleep and bundle
// endpoints.
type PlanRequest struct {
	Profile   domain.Profile `json:"profile"`
	WeekIndex int            `json:"weekIndex" validate:"gte=0,lte=520"`
	Locale    string         `json:"locale"    validate:"omitempty,max=35"`
}

// ChatRequest is the body of the chat endpoint.
type ChatRequest struct {
	PlanRequest
	Message string `json:"message" validate:"required,max=4000"`
}

// GenerationRequest converts the body into a service request for op.
func (p PlanRequest) GenerationRequest(op domain.Operation) domain.GenerationRequest {
	return domain.GenerationRequest{
		Operation: op,
		Profile:   p.Profile,
		WeekIndex: p.WeekIndex,
		Locale:    p.Locale,
	}
}

// WorkerCounters reports the background prefetch workers.
type WorkerCounters struct {
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Queued    int   `json:"queued"`
}

// DiagnosticsResponse is the body of GET /api/diagnostics.
type DiagnosticsResponse struct {
	Diagnostics diagnostics.Snapshot   `json:"diagnostics"`
	Cache       service.OperationStats `json:"cache"`
	Workers     *WorkerCounters        `json:"workers,omitempty"`
}
