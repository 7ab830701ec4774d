// Package inbound enforces deadlines on calls received by this process.
//
// The Guard computes each request's absolute deadline from the instant the
// request was received, rejects requests that are already past it when the
// mode enforces inbound deadlines, and otherwise hands the deadline to the
// handler through the request context and the propagation header.
package inbound

import (
	"context"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/louisbranch/deadlines/internal/deadline"
	"github.com/louisbranch/deadlines/internal/deadline/metrics"
	"github.com/louisbranch/deadlines/internal/platform/requestctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Guard is the server-side deadline interceptor. It is safe for concurrent
// use; all state is fixed at construction.
type Guard struct {
	mode          deadline.Mode
	globalDefault time.Duration
	endpoints     deadline.EndpointTimeouts
	recorder      metrics.Recorder
	clock         clock.Clock
	logger        *zap.Logger
	httpEndpoint  func(*http.Request) string
}

// Option customizes a Guard.
type Option func(*Guard)

// WithClock sets the clock used for receipt fallbacks and expiry checks.
func WithClock(clk clock.Clock) Option {
	return func(g *Guard) {
		if clk != nil {
			g.clock = clk
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(g *Guard) {
		if rec != nil {
			g.recorder = rec
		}
	}
}

// WithLogger sets the logger used for rejections.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithEndpointTimeouts replaces the endpoint table taken from Config.
func WithEndpointTimeouts(endpoints deadline.EndpointTimeouts) Option {
	return func(g *Guard) {
		if endpoints != nil {
			g.endpoints = endpoints
		}
	}
}

// WithHTTPEndpoint sets how HTTP requests are named for endpoint timeouts and
// metrics. The default is "METHOD /path".
func WithHTTPEndpoint(fn func(*http.Request) string) Option {
	return func(g *Guard) {
		if fn != nil {
			g.httpEndpoint = fn
		}
	}
}

// NewGuard builds a Guard from a validated configuration.
func NewGuard(cfg deadline.Config, opts ...Option) (*Guard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Guard{
		mode:          cfg.Mode,
		globalDefault: cfg.DefaultTimeout(),
		endpoints:     cfg.EndpointTimeouts(),
		recorder:      metrics.Nop{},
		clock:         clock.New(),
		logger:        zap.NewNop(),
		httpEndpoint:  defaultHTTPEndpoint,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func defaultHTTPEndpoint(r *http.Request) string {
	return r.Method + " " + r.URL.Path
}

// admission is the outcome of evaluating one inbound call.
type admission struct {
	decision deadline.Decision
	deadline deadline.Deadline
	// past is how far beyond the deadline the call was; zero when in time.
	past   time.Duration
	reject bool
}

func (g *Guard) admit(ctx context.Context, endpoint string, dispatch deadline.Dispatch, headers deadline.Headers) admission {
	var endpointDefault time.Duration
	if d, ok := g.endpoints.EndpointTimeout(endpoint); ok {
		endpointDefault = d
	}
	decision := deadline.Determine(deadline.Request{
		Dispatch:        dispatch,
		Headers:         headers,
		EndpointDefault: endpointDefault,
		GlobalDefault:   g.globalDefault,
	})
	g.recorder.TimeoutSource(endpoint, dispatch, decision)

	receivedAt, ok := requestctx.ReceivedAtFromContext(ctx)
	if !ok {
		receivedAt = g.clock.Now()
	}
	adm := admission{
		decision: decision,
		deadline: deadline.New(g.clock, receivedAt.Add(decision.Timeout)),
	}

	now := g.clock.Now()
	if now.After(adm.deadline.At()) {
		adm.past = now.Sub(adm.deadline.At())
		adm.reject = g.mode.EnforcesInbound()
		g.recorder.DeadlineExceeded(deadline.DirectionInbound, dispatch, adm.reject, adm.past)

		fields := []zap.Field{
			zap.String("endpoint", endpoint),
			zap.Stringer("dispatch", dispatch),
			zap.Stringer("source", decision.Source),
			zap.Duration("timeout", decision.Timeout),
			zap.Duration("past_deadline", adm.past),
			zap.Stringer("mode", g.mode),
			zap.Bool("enforced", adm.reject),
		}
		if adm.reject {
			g.logger.Warn("inbound deadline exceeded", fields...)
		} else {
			g.logger.Debug("inbound deadline exceeded", fields...)
		}
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("deadline.source", decision.Source.String()),
		attribute.Int64("deadline.timeout_ms", decision.Timeout.Milliseconds()),
		attribute.Bool("deadline.expired", adm.past > 0),
		attribute.Bool("deadline.enforced", adm.reject),
	)
	return adm
}
