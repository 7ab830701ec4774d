// Package metrics records every deadline decision made by the interceptors.
package metrics

import (
	"strconv"
	"time"

	"github.com/louisbranch/deadlines/internal/deadline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome describes what the outbound propagator did with a call.
type Outcome string

const (
	// OutcomePropagated means the remaining ambient budget was stamped.
	OutcomePropagated Outcome = "propagated"
	// OutcomeFallback means the outbound read timeout was stamped because no
	// ambient deadline existed.
	OutcomeFallback Outcome = "fallback"
	// OutcomeUnmodified means the call went out as the caller built it.
	OutcomeUnmodified Outcome = "unmodified"
	// OutcomeRejected means the call failed before reaching the wire.
	OutcomeRejected Outcome = "rejected"
)

// Recorder receives deadline observations.
type Recorder interface {
	// TimeoutSource records the effective timeout chosen for an inbound call.
	TimeoutSource(endpoint string, dispatch deadline.Dispatch, decision deadline.Decision)
	// DeadlineExceeded records a call that ran past its deadline.
	DeadlineExceeded(direction deadline.Direction, dispatch deadline.Dispatch, enforced bool, past time.Duration)
	// Outbound records the propagator's handling of an outbound call.
	Outbound(dispatch deadline.Dispatch, outcome Outcome)
}

// Nop discards all observations.
type Nop struct{}

// TimeoutSource discards the observation.
func (Nop) TimeoutSource(string, deadline.Dispatch, deadline.Decision) {}

// DeadlineExceeded discards the observation.
func (Nop) DeadlineExceeded(deadline.Direction, deadline.Dispatch, bool, time.Duration) {}

// Outbound discards the observation.
func (Nop) Outbound(deadline.Dispatch, Outcome) {}

// Prometheus records observations as Prometheus series.
type Prometheus struct {
	timeoutSource *prometheus.CounterVec
	timeout       *prometheus.HistogramVec
	exceeded      *prometheus.CounterVec
	pastDeadline  *prometheus.HistogramVec
	outbound      *prometheus.CounterVec
}

// NewPrometheus creates the deadline series and registers them on reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		timeoutSource: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "deadlines",
				Name:      "timeout_source_total",
				Help:      "Inbound calls by the source that supplied their timeout",
			},
			[]string{"endpoint", "dispatch", "source"},
		),
		timeout: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "deadlines",
				Name:      "timeout_seconds",
				Help:      "Effective inbound timeout in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"dispatch", "source"},
		),
		exceeded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "deadlines",
				Name:      "exceeded_total",
				Help:      "Calls observed past their deadline",
			},
			[]string{"direction", "dispatch", "enforced"},
		),
		pastDeadline: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "deadlines",
				Name:      "past_deadline_seconds",
				Help:      "How far past the deadline a call was when observed",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9), // 1ms to ~65s
			},
			[]string{"direction", "dispatch", "enforced"},
		),
		outbound: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "deadlines",
				Name:      "outbound_total",
				Help:      "Outbound calls by propagation outcome",
			},
			[]string{"dispatch", "outcome"},
		),
	}
}

// TimeoutSource implements Recorder.
func (p *Prometheus) TimeoutSource(endpoint string, dispatch deadline.Dispatch, decision deadline.Decision) {
	p.timeoutSource.WithLabelValues(endpoint, dispatch.String(), decision.Source.String()).Inc()
	p.timeout.WithLabelValues(dispatch.String(), decision.Source.String()).Observe(decision.Timeout.Seconds())
}

// DeadlineExceeded implements Recorder.
func (p *Prometheus) DeadlineExceeded(direction deadline.Direction, dispatch deadline.Dispatch, enforced bool, past time.Duration) {
	labels := []string{string(direction), dispatch.String(), strconv.FormatBool(enforced)}
	p.exceeded.WithLabelValues(labels...).Inc()
	p.pastDeadline.WithLabelValues(labels...).Observe(past.Seconds())
}

// Outbound implements Recorder.
func (p *Prometheus) Outbound(dispatch deadline.Dispatch, outcome Outcome) {
	p.outbound.WithLabelValues(dispatch.String(), string(outcome)).Inc()
}

// ExceededTotal exposes the exceeded counter for tests and dashboards.
func (p *Prometheus) ExceededTotal() *prometheus.CounterVec {
	return p.exceeded
}

// TimeoutSourceTotal exposes the source counter.
func (p *Prometheus) TimeoutSourceTotal() *prometheus.CounterVec {
	return p.timeoutSource
}

// OutboundTotal exposes the outbound outcome counter.
func (p *Prometheus) OutboundTotal() *prometheus.CounterVec {
	return p.outbound
}
