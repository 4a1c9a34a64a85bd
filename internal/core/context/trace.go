// Package context carries request-scoped tracing data through the call chain.
package context

import (
	"context"

	"github.com/google/uuid"
)

// TraceContext identifies one request or one CLI run in the logs.
type TraceContext struct {
	TraceID   string
	RequestID string
	// Operation names the refresh or read being served (e.g. "refresh_overview").
	Operation string
}

type traceContextKey struct{}

// WithTrace adds TraceContext to context.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns TraceContext from context.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// GetRequestID returns request ID from context or empty string.
func GetRequestID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.RequestID
	}
	return ""
}

// WithOperation returns a child context whose trace carries op.
// A trace is created when ctx has none.
func WithOperation(ctx context.Context, op string) context.Context {
	next := NewTraceContext()
	if t := GetTrace(ctx); t != nil {
		copied := *t
		next = &copied
	}
	next.Operation = op
	return WithTrace(ctx, next)
}

// NewTraceContext creates a new TraceContext with generated IDs.
func NewTraceContext() *TraceContext {
	return &TraceContext{
		TraceID:   uuid.New().String(),
		RequestID: uuid.New().String(),
	}
}
