package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/coach-api/internal/domain"
	"github.com/phrazzld/coach-api/internal/events"
)

// PrefetchEventHandler turns week prefetch events into queued tasks.
type PrefetchEventHandler struct {
	queue      TaskQueueWriter
	prefetcher Prefetcher
	logger     *slog.Logger
}

// NewPrefetchEventHandler creates a handler that enqueues a WeekPrefetchTask
// on queue for every week prefetch event.
func NewPrefetchEventHandler(queue TaskQueueWriter, prefetcher Prefetcher, logger *slog.Logger) *PrefetchEventHandler {
	return &PrefetchEventHandler{
		queue:      queue,
		prefetcher: prefetcher,
		logger:     logger.With("component", "prefetch_event_handler"),
	}
}

// HandleEvent enqueues a prefetch task. Events of other types are ignored.
func (h *PrefetchEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	if event.Type != events.EventTypeWeekPrefetch {
		h.logger.DebugContext(ctx, "ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var req domain.GenerationRequest
	if err := event.UnmarshalPayload(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	task, err := NewWeekPrefetchTask(req, h.prefetcher)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create task", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.queue.Enqueue(task); err != nil {
		h.logger.WarnContext(ctx, "failed to enqueue prefetch task",
			"error", err,
			"task_id", task.ID(),
			"operation", req.Operation,
			"week_index", req.WeekIndex,
			"event_id", event.ID)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	h.logger.InfoContext(ctx, "prefetch task enqueued",
		"task_id", task.ID(),
		"operation", req.Operation,
		"week_index", req.WeekIndex,
		"event_id", event.ID)
	return nil
}

var _ events.EventHandler = (*PrefetchEventHandler)(nil)
