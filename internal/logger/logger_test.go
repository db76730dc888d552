package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func useObserver(t *testing.T) *observer.ObservedLogs {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	prev := Get()
	Set(zap.New(core))
	t.Cleanup(func() { Set(prev) })

	return logs
}

func TestLevels(t *testing.T) { //nolint:paralleltest // swaps the process logger
	logs := useObserver(t)

	Debug("debug msg", nil)
	Info("info msg", map[string]any{"port": "5000"})
	Warn("warn msg", nil)
	Error("error msg", map[string]any{"error": "boom"})

	entries := logs.All()
	require.Len(t, entries, 4)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "info msg", entries[1].Message)
	assert.Equal(t, "5000", entries[1].ContextMap()["port"])
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "boom", entries[3].ContextMap()["error"])
}

func TestInit(t *testing.T) { //nolint:paralleltest // swaps the process logger
	prev := Get()
	t.Cleanup(func() { Set(prev) })

	require.NoError(t, Init("debug", "json"))
	require.NoError(t, Init("warn", "console"))

	err := Init("loud", "json")
	require.Error(t, err)
}

func TestGetReturnsCurrent(t *testing.T) { //nolint:paralleltest // swaps the process logger
	prev := Get()
	t.Cleanup(func() { Set(prev) })

	l := zap.NewExample()
	Set(l)
	assert.Same(t, l, Get())
}
