// Package outbound carries the ambient deadline of an inbound call into the
// calls it makes, narrowing each outbound timeout to the remaining budget.
package outbound

import (
	"context"
	"time"

	"github.com/louisbranch/deadlines/internal/deadline"
	"github.com/louisbranch/deadlines/internal/deadline/metrics"
	"go.uber.org/zap"
)

// Propagator is the client-side deadline interceptor. It never fabricates a
// deadline: it forwards what the inbound guard computed, or the configured
// read timeout when the call runs outside any inbound scope.
type Propagator struct {
	mode     deadline.Mode
	fallback time.Duration
	recorder metrics.Recorder
	logger   *zap.Logger
}

// Option customizes a Propagator.
type Option func(*Propagator)

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(p *Propagator) {
		if rec != nil {
			p.recorder = rec
		}
	}
}

// WithLogger sets the logger used for rejections.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Propagator) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPropagator builds a Propagator from a validated configuration.
func NewPropagator(cfg deadline.Config, opts ...Option) (*Propagator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Propagator{
		mode:     cfg.Mode,
		fallback: cfg.OutboundReadTimeout(),
		recorder: metrics.Nop{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type action int

const (
	actionUnmodified action = iota
	actionStamp
	actionReject
)

// plan is what to do with one outbound call.
type plan struct {
	action  action
	timeout time.Duration
	past    time.Duration
}

func (p *Propagator) plan(ctx context.Context, target string, dispatch deadline.Dispatch) plan {
	ambient, ok := deadline.FromContext(ctx)
	if !ok {
		if p.mode == deadline.ModeMetricsOnly {
			return plan{action: actionUnmodified}
		}
		p.recorder.Outbound(dispatch, metrics.OutcomeFallback)
		return plan{action: actionStamp, timeout: p.fallback}
	}

	remaining := ambient.Remaining()
	if remaining <= 0 {
		past := -remaining
		enforced := p.mode.EnforcesOutbound()
		p.recorder.DeadlineExceeded(deadline.DirectionOutbound, dispatch, enforced, past)
		if !enforced {
			p.recorder.Outbound(dispatch, metrics.OutcomeUnmodified)
			return plan{action: actionUnmodified, past: past}
		}
		p.recorder.Outbound(dispatch, metrics.OutcomeRejected)
		p.logger.Warn("outbound deadline exceeded",
			zap.String("target", target),
			zap.Stringer("dispatch", dispatch),
			zap.Duration("past_deadline", past),
			zap.Stringer("mode", p.mode),
		)
		return plan{action: actionReject, past: past}
	}

	if p.mode == deadline.ModeMetricsOnly {
		p.recorder.Outbound(dispatch, metrics.OutcomeUnmodified)
		return plan{action: actionUnmodified}
	}
	p.recorder.Outbound(dispatch, metrics.OutcomePropagated)
	return plan{action: actionStamp, timeout: remaining}
}

func (pl plan) rejection(dispatch deadline.Dispatch) error {
	return deadline.ExceededError(deadline.DirectionOutbound, dispatch, pl.past)
}
