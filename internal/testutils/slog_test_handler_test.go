package testutils_test

import (
	"log/slog"
	"testing"

	"github.com/phrazzld/coach-api/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestSlogHandler(t *testing.T) {
	logger, handler := testutils.NewTestSlogLogger()

	logger.With("component", "worker").Warn("task failed", "task_id", "t1")
	logger.Info("done")

	entries := handler.Entries()
	require.Len(t, entries, 2)

	entry, ok := handler.Find("task failed")
	require.True(t, ok)
	assert.Equal(t, slog.LevelWarn.String(), entry["level"])
	assert.Equal(t, "worker", entry["component"], "attrs from With are kept")
	assert.Equal(t, "t1", entry["task_id"])

	_, ok = handler.Find("missing")
	assert.False(t, ok)

	handler.Clear()
	assert.Empty(t, handler.Entries())
}

func TestRequest(t *testing.T) {
	req := testutils.Request("chat", 2)
	assert.Equal(t, 2, req.WeekIndex)
	assert.NotEmpty(t, req.Message)
	assert.Equal(t, testutils.Profile().Hash(), req.Profile.Hash())
}
