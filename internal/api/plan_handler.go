package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/coach-api/internal/api/shared"
	"github.com/phrazzld/coach-api/internal/domain"
	"github.com/phrazzld/coach-api/internal/service"
)

// PlanService is the part of service.PlanService the handlers use.
type PlanService interface {
	Training(ctx context.Context, req domain.GenerationRequest) (service.Result[domain.TrainingPlan], error)
	Nutrition(ctx context.Context, req domain.GenerationRequest) (service.Result[domain.NutritionPlan], error)
	Sleep(ctx context.Context, req domain.GenerationRequest) (service.Result[domain.SleepAdvice], error)
	Chat(ctx context.Context, req domain.GenerationRequest) (service.Result[domain.ChatReply], error)
	Bundle(ctx context.Context, req domain.GenerationRequest) (service.Result[domain.Bundle], error)
	Stats() service.OperationStats
}

var _ PlanService = (*service.PlanService)(nil)

// PlanHandler serves the generation endpoints.
type PlanHandler struct {
	svc    PlanService
	logger *slog.Logger
}

// NewPlanHandler creates a PlanHandler.
func NewPlanHandler(svc PlanService, logger *slog.Logger) *PlanHandler {
	return &PlanHandler{svc: svc, logger: logger.With("component", "plan_handler")}
}

// Training handles POST /api/plans/training.
func (h *PlanHandler) Training(w http.ResponseWriter, r *http.Request) {
	servePlan(h, w, r, domain.OperationTraining, h.svc.Training)
}

// Nutrition handles POST /api/plans/nutrition.
func (h *PlanHandler) Nutrition(w http.ResponseWriter, r *http.Request) {
	servePlan(h, w, r, domain.OperationNutrition, h.svc.Nutrition)
}

// Sleep handles POST /api/advice/sleep.
func (h *PlanHandler) Sleep(w http.ResponseWriter, r *http.Request) {
	servePlan(h, w, r, domain.OperationSleep, h.svc.Sleep)
}

// Bundle handles POST /api/bundle.
func (h *PlanHandler) Bundle(w http.ResponseWriter, r *http.Request) {
	servePlan(h, w, r, domain.OperationBundle, h.svc.Bundle)
}

// Chat handles POST /api/chat.
func (h *PlanHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var body ChatRequest
	if !decodeAndValidate(w, r, &body) {
		return
	}
	req := body.GenerationRequest(domain.OperationChat)
	req.Message = body.Message
	respond(h, w, r, domain.OperationChat, req, h.svc.Chat)
}

func servePlan[T any](
	h *PlanHandler,
	w http.ResponseWriter,
	r *http.Request,
	op domain.Operation,
	run func(context.Context, domain.GenerationRequest) (service.Result[T], error),
) {
	var body PlanRequest
	if !decodeAndValidate(w, r, &body) {
		return
	}
	respond(h, w, r, op, body.GenerationRequest(op), run)
}

func respond[T any](
	h *PlanHandler,
	w http.ResponseWriter,
	r *http.Request,
	op domain.Operation,
	req domain.GenerationRequest,
	run func(context.Context, domain.GenerationRequest) (service.Result[T], error),
) {
	res, err := run(r.Context(), req)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "payload served",
		"trace_id", shared.GetTraceID(r.Context()),
		"operation", op,
		"source", res.Source,
		"attempts", res.Attempts,
		"week_index", req.WeekIndex,
		"locale", req.Locale)
	shared.RespondWithJSON(w, r, http.StatusOK, res)
}

// decodeAndValidate reads the JSON body into v and writes a 4xx response when
// it is malformed or invalid.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := shared.DecodeJSON(w, r, v); err != nil {
		status, message := http.StatusBadRequest, "Invalid request format"
		if MapErrorToStatusCode(err) == http.StatusRequestEntityTooLarge {
			status, message = http.StatusRequestEntityTooLarge, "Request body too large"
		}
		shared.RespondWithErrorAndLog(w, r, status, message, err)
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return false
	}
	return true
}
