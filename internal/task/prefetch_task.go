package task

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/coach-api/internal/domain"
)

// Prefetcher generates a request so its result lands in the cache.
type Prefetcher interface {
	Prefetch(ctx context.Context, req domain.GenerationRequest) error
}

// WeekPrefetchTask generates one future week in the background.
type WeekPrefetchTask struct {
	id         uuid.UUID
	req        domain.GenerationRequest
	payload    []byte
	prefetcher Prefetcher

	mu     sync.Mutex
	status TaskStatus
}

// NewWeekPrefetchTask creates a pending task for req.
func NewWeekPrefetchTask(req domain.GenerationRequest, prefetcher Prefetcher) (*WeekPrefetchTask, error) {
	if prefetcher == nil {
		return nil, fmt.Errorf("prefetcher cannot be nil")
	}
	if !req.Operation.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidOperation, req.Operation)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prefetch request: %w", err)
	}
	return &WeekPrefetchTask{
		id:         uuid.New(),
		req:        req,
		payload:    payload,
		prefetcher: prefetcher,
		status:     TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *WeekPrefetchTask) ID() uuid.UUID { return t.id }

// Type returns TaskTypeWeekPrefetch.
func (t *WeekPrefetchTask) Type() string { return TaskTypeWeekPrefetch }

// Payload returns the JSON-encoded generation request.
func (t *WeekPrefetchTask) Payload() []byte { return t.payload }

// Request returns the generation request the task will run.
func (t *WeekPrefetchTask) Request() domain.GenerationRequest { return t.req }

// Status returns the current task status
func (t *WeekPrefetchTask) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *WeekPrefetchTask) setStatus(s TaskStatus) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

// Execute runs the prefetch.
func (t *WeekPrefetchTask) Execute(ctx context.Context) error {
	t.setStatus(TaskStatusProcessing)
	if err := t.prefetcher.Prefetch(ctx, t.req); err != nil {
		t.setStatus(TaskStatusFailed)
		return fmt.Errorf("prefetch %s week %d: %w", t.req.Operation, t.req.WeekIndex, err)
	}
	t.setStatus(TaskStatusCompleted)
	return nil
}
