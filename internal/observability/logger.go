// internal/observability/logger.go
package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// SLogger is a wrapper for a zap sugared logger with OpenTelemetry integration
type SLogger struct {
	*zap.SugaredLogger
}

const (
	traceIDKey = "trace_id"
	spanIDKey  = "span_id"
)

// NewLogger constructs a new sugared logger writing JSON at the given level.
func NewLogger(level zapcore.Level, options ...zap.Option) (*SLogger, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	baseLogger, err := config.Build(options...)
	if err != nil {
		return nil, err
	}

	logger := wrapLogger(baseLogger)
	logger.Debugw("logger initialized", "level", config.Level.String())

	return logger, nil
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *SLogger {
	return wrapLogger(zap.NewNop())
}

func wrapLogger(logger *zap.Logger) *SLogger {
	return &SLogger{logger.Sugar()}
}

// With returns a child logger carrying the given key-value pairs.
func (l *SLogger) With(keysAndValues ...interface{}) *SLogger {
	return &SLogger{l.SugaredLogger.With(keysAndValues...)}
}

// getTraceInfo gets the trace and span metadata from context
func getTraceInfo(ctx context.Context) (trace.TraceID, trace.SpanID, bool) {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return trace.TraceID{}, trace.SpanID{}, false
	}

	return span.SpanContext().TraceID(), span.SpanContext().SpanID(), true
}

// traceFields prepends trace_id/span_id to keyValues when ctx carries a span.
func traceFields(ctx context.Context, keyValues []interface{}) []interface{} {
	traceID, spanID, ok := getTraceInfo(ctx)
	if !ok {
		return keyValues
	}

	out := make([]interface{}, 0, len(keyValues)+4)
	out = append(out, traceIDKey, traceID.String(), spanIDKey, spanID.String())
	return append(out, keyValues...)
}

// LogWithContext logs a message with trace context at the specified level
func (l *SLogger) LogWithContext(ctx context.Context, level zapcore.Level, msg string, keyValues ...interface{}) {
	keyValues = traceFields(ctx, keyValues)

	switch level {
	case zapcore.ErrorLevel:
		l.Errorw(msg, keyValues...)
	case zapcore.WarnLevel:
		l.Warnw(msg, keyValues...)
	case zapcore.DebugLevel:
		l.Debugw(msg, keyValues...)
	default:
		l.Infow(msg, keyValues...)
	}
}

// DebugCtx logs a debug message with trace context
func (l *SLogger) DebugCtx(ctx context.Context, msg string, keyValues ...interface{}) {
	l.Debugw(msg, traceFields(ctx, keyValues)...)
}

// InfoCtx logs a message with trace context
func (l *SLogger) InfoCtx(ctx context.Context, msg string, keyValues ...interface{}) {
	l.Infow(msg, traceFields(ctx, keyValues)...)
}

// WarnCtx logs a warning with trace context
func (l *SLogger) WarnCtx(ctx context.Context, msg string, keyValues ...interface{}) {
	l.Warnw(msg, traceFields(ctx, keyValues)...)
}

// ErrorCtx logs an error with trace context
func (l *SLogger) ErrorCtx(ctx context.Context, err error, keyValues ...interface{}) {
	l.Errorw(err.Error(), traceFields(ctx, keyValues)...)
}

// GetTraceID returns the trace ID from context
func GetTraceID(ctx context.Context) (string, bool) {
	traceID, _, ok := getTraceInfo(ctx)
	if !ok {
		return "", false
	}
	return traceID.String(), true
}

// NewTestLogger creates a logger for testing
func NewTestLogger() (*SLogger, *observer.ObservedLogs, error) {
	core, observedLogs := observer.New(zapcore.DebugLevel)
	observedOpt := zap.WrapCore(func(zapcore.Core) zapcore.Core {
		return core
	})

	baseLogger, err := zap.NewDevelopment(observedOpt)
	if err != nil {
		return nil, nil, err
	}

	return wrapLogger(baseLogger), observedLogs, nil
}
