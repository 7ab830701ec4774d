package deadline

import "context"

// deadlineContextKey is the context key for the ambient deadline.
type deadlineContextKey struct{}

// WithDeadline stores the ambient deadline of the current inbound call.
func WithDeadline(ctx context.Context, d Deadline) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, deadlineContextKey{}, d)
}

// FromContext returns the ambient deadline, if the current execution runs
// inside an inbound call.
func FromContext(ctx context.Context) (Deadline, bool) {
	if ctx == nil {
		return Deadline{}, false
	}
	d, ok := ctx.Value(deadlineContextKey{}).(Deadline)
	if !ok || d.IsZero() {
		return Deadline{}, false
	}
	return d, true
}

// Scope is a captured ambient deadline. Work handed to another goroutine on a
// fresh context (worker pools, detached continuations) must capture the scope
// before the hop and Activate it afterwards; otherwise its outbound calls see
// no deadline at all.
type Scope struct {
	deadline Deadline
	ok       bool
}

// CaptureScope snapshots the ambient deadline of ctx.
func CaptureScope(ctx context.Context) Scope {
	d, ok := FromContext(ctx)
	return Scope{deadline: d, ok: ok}
}

// Deadline returns the captured deadline.
func (s Scope) Deadline() (Deadline, bool) {
	return s.deadline, s.ok
}

// Activate installs the captured deadline on ctx. An empty scope returns ctx
// unchanged.
func (s Scope) Activate(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.ok {
		return ctx
	}
	return WithDeadline(ctx, s.deadline)
}
