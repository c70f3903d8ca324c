package shared

import (
	"context"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx), "Expected empty trace ID in original context")

	ctxWithTrace := SetTraceID(ctx)
	traceID := GetTraceID(ctxWithTrace)
	assert.Len(t, traceID, 32, "Expected trace ID length to be 32 hex characters (16 bytes)")

	assert.Empty(t, GetTraceID(ctx), "Expected original context to remain unchanged")
}

func TestGetTraceIDWithInvalidContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), TraceIDKey, 123) // Not a string
	assert.Empty(t, GetTraceID(ctx))
}

func TestGenerateTraceID(t *testing.T) {
	const iterations = 1000
	seen := make(map[string]bool, iterations)

	for i := 0; i < iterations; i++ {
		id := generateTraceID()
		require.Len(t, id, 32)
		_, err := hex.DecodeString(id)
		require.NoError(t, err, "Expected valid hex string")
		assert.False(t, seen[id], "Expected all trace IDs to be unique")
		seen[id] = true
	}
}

func TestFallbackTraceID(t *testing.T) {
	a, b := fallbackTraceID(), fallbackTraceID()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
	_, err := hex.DecodeString(a)
	assert.NoError(t, err)
}

func TestValidIncomingTraceID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"abc-123_DEF", true},
		{"", false},
		{"has space", false},
		{"new\nline", false},
		{strings.Repeat("a", 64), true},
		{strings.Repeat("a", 65), false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ValidIncomingTraceID(tc.id), "id %q", tc.id)
	}
}

func TestSubject(t *testing.T) {
	_, ok := GetSubject(context.Background())
	assert.False(t, ok)

	subject, ok := GetSubject(WithSubject(context.Background(), "athlete-42"))
	assert.True(t, ok)
	assert.Equal(t, "athlete-42", subject)

	_, ok = GetSubject(WithSubject(context.Background(), ""))
	assert.False(t, ok)
}
