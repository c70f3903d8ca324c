package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/coach-api/internal/api/shared"
	"github.com/phrazzld/coach-api/internal/diagnostics"
	"github.com/phrazzld/coach-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
)

func TestTraceMiddleware(t *testing.T) {
	log, buf := logger.NewTestLogger(t)

	var gotTrace, gotRequestID string
	handler := NewTraceMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTrace = shared.GetTraceID(r.Context())
		gotRequestID = diagnostics.RequestIDFromContext(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("generates an ID", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Len(t, gotTrace, 32)
		assert.Equal(t, gotTrace, gotRequestID)
		assert.Equal(t, gotTrace, w.Header().Get(shared.TraceIDHeader))
		assert.Contains(t, buf.String(), gotTrace)
		assert.Contains(t, buf.String(), "request completed")
	})

	t.Run("reuses a valid caller ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(shared.TraceIDHeader, "client-abc-123")
		handler.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "client-abc-123", gotTrace)
	})

	t.Run("ignores an unsafe caller ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(shared.TraceIDHeader, "bad id\r\n")
		handler.ServeHTTP(httptest.NewRecorder(), req)
		assert.NotEqual(t, "bad id\r\n", gotTrace)
		assert.Len(t, gotTrace, 32)
	})
}
