package diagnostics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// DefaultCapacity is the number of records a Recorder retains by default.
const DefaultCapacity = 512

// Instrumentation names. StageRecordsMetric counts every record with
// operation and category attributes.
const (
	MeterName          = "github.com/phrazzld/coach-api/internal/diagnostics"
	StageRecordsMetric = "coach_generation_stage_records_total"
)

const (
	attrOperation = "operation"
	attrCategory  = "category"
)

// Recorder is the in-memory Sink used by the service. Counters live in an
// OpenTelemetry meter read back through a manual reader, so they are updated
// without taking the log mutex.
type Recorder struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
	stages   metric.Int64Counter

	mu       sync.Mutex
	entries  []Record
	capacity int
	handlers []Handler

	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithCapacity sets how many of the most recent records are retained.
func WithCapacity(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// WithClock overrides the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// NewRecorder creates a Recorder that logs through logger.
func NewRecorder(logger *slog.Logger, opts ...Option) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	reader := sdkmetric.NewManualReader()
	r := &Recorder{
		reader:   reader,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		capacity: DefaultCapacity,
		logger:   logger.With("component", "diagnostics"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	counter, err := r.provider.Meter(MeterName).Int64Counter(StageRecordsMetric,
		metric.WithDescription("Generation stage records by operation and category"))
	if err != nil {
		r.logger.Error("failed to create stage record counter", "error", err)
	}
	r.stages = counter
	return r
}


// RegisterHandler adds a handler that receives every subsequent record.
func (r *Recorder) RegisterHandler(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, h)
	r.logger.Debug("registered diagnostics handler", "handler_count", len(r.handlers))
}

// Record stores rec, bumps its counter, logs it and fans it out to handlers.
// A zero Time is stamped with the recorder's clock. Handler errors are logged
// and do not stop delivery to the remaining handlers.
func (r *Recorder) Record(ctx context.Context, rec Record) {
	if rec.Time.IsZero() {
		rec.Time = r.now()
	}
	r.stages.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, rec.Operation),
		attribute.String(attrCategory, rec.Category)))

	r.mu.Lock()
	if len(r.entries) >= r.capacity {
		// Drop the oldest entries in one copy instead of on every append.
		keep := r.capacity / 2
		r.entries = append(r.entries[:0:0], r.entries[len(r.entries)-keep:]...)
	}
	r.entries = append(r.entries, rec)
	handlers := make([]Handler, len(r.handlers))
	copy(handlers, r.handlers)
	r.mu.Unlock()

	r.log(ctx, rec)

	for i, h := range handlers {
		if err := h.HandleRecord(ctx, rec); err != nil {
			r.logger.ErrorContext(ctx, "diagnostics handler failed",
				"error", err,
				"handler_index", i,
				"operation", rec.Operation,
				"category", rec.Category)
		}
	}
}

func (r *Recorder) log(ctx context.Context, rec Record) {
	level := slog.LevelDebug
	switch rec.Category {
	case CategoryUpstream, CategoryTimeout, CategoryExhausted, CategoryFallback:
		level = slog.LevelWarn
	case CategoryDecode, CategoryValidation, CategoryLanguageMismatch, CategoryEmptyResponse:
		level = slog.LevelInfo
	}
	r.logger.Log(ctx, level, "generation stage",
		"operation", rec.Operation,
		"request_id", rec.RequestID,
		"attempt", rec.Attempt,
		"stage", string(rec.Stage),
		"category", rec.Category,
		"message", rec.Message,
		"snippet", rec.Snippet)
}

// Count returns the number of records seen for operation and category.
func (r *Recorder) Count(operation, category string) int64 {
	for _, c := range r.counters() {
		if c.Operation == operation && c.Category == category {
			return c.Count
		}
	}
	return 0
}

// counters collects the cumulative stage record totals from the reader.
func (r *Recorder) counters() []Counter {
	var rm metricdata.ResourceMetrics
	if err := r.reader.Collect(context.Background(), &rm); err != nil {
		r.logger.Error("failed to collect diagnostics counters", "error", err)
		return nil
	}

	var out []Counter
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != StageRecordsMetric {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				op, _ := dp.Attributes.Value(attrOperation)
				cat, _ := dp.Attributes.Value(attrCategory)
				out = append(out, Counter{
					Operation: op.AsString(),
					Category:  cat.AsString(),
					Count:     dp.Value,
				})
			}
		}
	}
	return out
}

// Counter is one (operation, category) tally.
type Counter struct {
	Operation string `json:"operation"`
	Category  string `json:"category"`
	Count     int64  `json:"count"`
}

// Snapshot is a point-in-time copy of a Recorder's state.
type Snapshot struct {
	Counters []Counter `json:"counters"`
	Records  []Record  `json:"records"`
}

// Snapshot returns the counters sorted by operation and category, and up to
// limit of the most recent records, oldest first. A limit of zero or less
// returns every retained record.
func (r *Recorder) Snapshot(limit int) Snapshot {
	snap := Snapshot{Counters: r.counters()}
	sort.Slice(snap.Counters, func(i, j int) bool {
		a, b := snap.Counters[i], snap.Counters[j]
		if a.Operation != b.Operation {
			return a.Operation < b.Operation
		}
		return a.Category < b.Category
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	start := 0
	if limit > 0 && len(r.entries) > limit {
		start = len(r.entries) - limit
	}
	snap.Records = append([]Record(nil), r.entries[start:]...)
	return snap
}
