// Package requestctx carries the per-request logger and trace ids that access logs and error
// bodies read back.
package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type key int

const (
	loggerKey key = iota
	traceKey
)

var noopLogger = zap.NewNop()

// TraceInfo identifies the span serving a request.
type TraceInfo struct {
	TraceID string
	SpanID  string
	Sampled bool
}

// WithLogger attaches logger to ctx. A nil logger is replaced by a no-op one.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = noopLogger
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger returns the request logger, or the shared no-op logger outside a request.
func Logger(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok && logger != nil {
			return logger
		}
	}
	return noopLogger
}

// NoopLogger lets callers tell whether a request logger was ever attached.
func NoopLogger() *zap.Logger { return noopLogger }

func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceKey, info)
}

// TraceID is empty when the request was not traced.
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	info, _ := ctx.Value(traceKey).(TraceInfo)
	return info.TraceID
}
