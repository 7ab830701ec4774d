// Package requestctx carries per-request values stamped by the transport
// before any handler logic runs.
package requestctx

import (
	"context"
	"time"
)

// receivedAtContextKey is the context key for the request-received instant.
type receivedAtContextKey struct{}

// WithReceivedAt stores the instant the request was received in context.
func WithReceivedAt(ctx context.Context, at time.Time) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, receivedAtContextKey{}, at)
}

// ReceivedAtFromContext returns the request-received instant stored in
// context. ok is false when the transport did not record one.
func ReceivedAtFromContext(ctx context.Context) (at time.Time, ok bool) {
	if ctx == nil {
		return time.Time{}, false
	}
	at, ok = ctx.Value(receivedAtContextKey{}).(time.Time)
	return at, ok
}
