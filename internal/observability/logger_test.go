// internal/observability/logger_test.go
package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func createTestLogger() (*SLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &SLogger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func tracedContext(t *testing.T) context.Context {
	t.Helper()
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	t.Cleanup(func() { span.End() })
	return ctx
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(zapcore.InfoLevel)
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNewNopLogger(t *testing.T) {
	logger := NewNopLogger()
	require.NotNil(t, logger)
	assert.NotPanics(t, func() { logger.Infow("discarded", "k", "v") })
}

func TestNewTestLogger(t *testing.T) {
	logger, logs, err := NewTestLogger()
	require.NoError(t, err)

	logger.Info("test message")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "test message", entries[0].Message)
}

func TestLogWithContext(t *testing.T) {
	testCases := []struct {
		name  string
		level zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger, logs := createTestLogger()

			logger.LogWithContext(context.Background(), tc.level, "test message", "lock_id", "abc")

			entries := logs.AllUntimed()
			require.Len(t, entries, 1)
			assert.Equal(t, tc.level, entries[0].Level)
			assert.Equal(t, "test message", entries[0].Message)
			assert.Equal(t, "abc", entries[0].ContextMap()["lock_id"])
			assert.NotContains(t, entries[0].ContextMap(), traceIDKey)
		})
	}
}

func TestInfoCtx_WithTrace(t *testing.T) {
	logger, logs := createTestLogger()
	ctx := tracedContext(t)

	logger.InfoCtx(ctx, "traced message", "attempt", 1)

	entries := logs.AllUntimed()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	traceID, ok := GetTraceID(ctx)
	require.True(t, ok)
	assert.Equal(t, traceID, fields[traceIDKey])
	assert.NotEmpty(t, fields[spanIDKey])
	assert.EqualValues(t, 1, fields["attempt"])
}

func TestErrorCtx(t *testing.T) {
	logger, logs := createTestLogger()

	err := errors.New("test error")
	logger.ErrorCtx(context.Background(), err)

	entries := logs.AllUntimed()
	require.Len(t, entries, 1)
	assert.Equal(t, err.Error(), entries[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestWarnAndDebugCtx(t *testing.T) {
	logger, logs := createTestLogger()

	logger.WarnCtx(context.Background(), "warned")
	logger.DebugCtx(context.Background(), "debugged")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
}

func TestWith(t *testing.T) {
	logger, logs := createTestLogger()

	logger.With("component", "client").Info("hello")

	entries := logs.AllUntimed()
	require.Len(t, entries, 1)
	assert.Equal(t, "client", entries[0].ContextMap()["component"])
}

func TestGetTraceID_NoTrace(t *testing.T) {
	traceID, ok := GetTraceID(context.Background())
	assert.False(t, ok)
	assert.Equal(t, "", traceID)
}
