// Package trace carries a correlation identifier through a context.Context.
//
// A trace ID is established once at the boundary of each unit of work (an HTTP
// request, a received queue message) and passed down explicitly; nothing here
// recovers it from ambient global state.
package trace

import (
	"context"

	"github.com/google/uuid"
)

type contextKey struct{}

// WithTrace returns a context carrying the given trace ID. An empty ID is
// replaced with a freshly generated one.
func WithTrace(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		traceID = uuid.New().String()
	}
	return context.WithValue(ctx, contextKey{}, traceID)
}

// WithNewTrace returns a context carrying a freshly generated trace ID.
func WithNewTrace(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, uuid.New().String())
}

// FromContext returns the trace ID carried by ctx, or "" if none is set.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}
