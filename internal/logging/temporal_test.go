package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTemporalLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewTemporalLogger(zap.New(core))

	logger.Info("Worker started", "TaskQueue", "seat-inventory-queue")
	var withRun log.Logger = logger.With("RunID", "run-1")
	withRun.Warn("Activity retry", "Attempt", 2)
	logger.Error("Activity failed")

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "seat-inventory-queue", entries[0].ContextMap()["TaskQueue"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "run-1", entries[1].ContextMap()["RunID"])
	assert.Equal(t, int64(2), entries[1].ContextMap()["Attempt"])

	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "Activity failed", entries[2].Message)
}
