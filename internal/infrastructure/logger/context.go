package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	sessionIDKey contextKey = "session_id"
	operationKey contextKey = "operation"
)

// WithContext returns a context carrying logger
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the context logger, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithSessionID tags the context with the shopper session and returns logger
// with the session field added. The context keeps the plain logger; L adds
// the field on the way out.
func WithSessionID(ctx context.Context, logger *zap.Logger, sessionID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	return WithContext(ctx, logger), logger.With(zap.String("session_id", sessionID))
}

// WithOperation tags the context with the operation being performed, such
// as "add_to_cart" or "discount_tick"
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey, operation)
}

// GetSessionID returns the session id stored in ctx
func GetSessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// GetOperation returns the operation stored in ctx
func GetOperation(ctx context.Context) string {
	op, _ := ctx.Value(operationKey).(string)
	return op
}

// L returns the context logger enriched with trace ids, session and operation
func L(ctx context.Context) *zap.Logger {
	return enrich(ctx, FromContext(ctx))
}

// For enriches a given logger with the fields carried by ctx
func For(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return enrich(ctx, logger)
}

func enrich(ctx context.Context, l *zap.Logger) *zap.Logger {
	fields := make([]zap.Field, 0, 4)
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		fields = append(fields,
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	if id := GetSessionID(ctx); id != "" {
		fields = append(fields, zap.String("session_id", id))
	}
	if op := GetOperation(ctx); op != "" {
		fields = append(fields, zap.String("operation", op))
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}
