package api

import (
	"net/http"
	"strconv"

	"github.com/phrazzld/coach-api/internal/api/shared"
	"github.com/phrazzld/coach-api/internal/diagnostics"
)

const (
	defaultRecordLimit = 50
	maxRecordLimit     = 1000
)

// SnapshotSource provides diagnostic snapshots.
type SnapshotSource interface {
	Snapshot(limit int) diagnostics.Snapshot
}

// WorkerStatsFunc reports the background worker counters.
type WorkerStatsFunc func() WorkerCounters

// DiagnosticsHandler serves GET /api/diagnostics.
type DiagnosticsHandler struct {
	recorder SnapshotSource
	plans    PlanService
	workers  WorkerStatsFunc
}

// NewDiagnosticsHandler creates a DiagnosticsHandler. workers may be nil.
func NewDiagnosticsHandler(recorder SnapshotSource, plans PlanService, workers WorkerStatsFunc) *DiagnosticsHandler {
	return &DiagnosticsHandler{recorder: recorder, plans: plans, workers: workers}
}

// ServeHTTP writes the counters, the most recent records (?limit=N, default
// 50) and the cache statistics.
func (h *DiagnosticsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecordLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRecordLimit {
			shared.RespondWithError(w, r, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	resp := DiagnosticsResponse{
		Diagnostics: h.recorder.Snapshot(limit),
		Cache:       h.plans.Stats(),
	}
	if h.workers != nil {
		counters := h.workers()
		resp.Workers = &counters
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
