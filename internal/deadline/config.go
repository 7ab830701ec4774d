package deadline

import (
	"errors"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/deadlines/internal/platform/errors"
	"github.com/louisbranch/deadlines/internal/platform/timeouts"
)

// Config is the deadline policy shared by the inbound guard and the outbound
// propagator. Build it once at startup and pass it by value.
type Config struct {
	Mode                  Mode             `env:"DEADLINES_ENFORCEMENT_MODE" envDefault:"metrics-only"`
	DefaultTimeoutMs      int64            `env:"DEADLINES_DEFAULT_TIMEOUT_MS" envDefault:"10000"`
	OutboundReadTimeoutMs int64            `env:"DEADLINES_OUTBOUND_READ_TIMEOUT_MS" envDefault:"10000"`
	EndpointTimeoutsMs    map[string]int64 `env:"DEADLINES_ENDPOINT_TIMEOUTS_MS" envSeparator:"," envKeyValSeparator:"="`
}

// DefaultConfig returns the rollout-safe policy: observe only, with the
// platform default budgets.
func DefaultConfig() Config {
	return Config{
		Mode:                  ModeMetricsOnly,
		DefaultTimeoutMs:      timeouts.DefaultRequest.Milliseconds(),
		OutboundReadTimeoutMs: timeouts.OutboundRead.Milliseconds(),
	}
}

// DefaultTimeout returns the global default as a duration.
func (c Config) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutMs) * time.Millisecond
}

// OutboundReadTimeout returns the outbound fallback as a duration.
func (c Config) OutboundReadTimeout() time.Duration {
	return time.Duration(c.OutboundReadTimeoutMs) * time.Millisecond
}

// EndpointTimeouts returns the per-endpoint defaults.
func (c Config) EndpointTimeouts() StaticEndpointTimeouts {
	endpoints := make(StaticEndpointTimeouts, len(c.EndpointTimeoutsMs))
	for endpoint, ms := range c.EndpointTimeoutsMs {
		endpoints[endpoint] = time.Duration(ms) * time.Millisecond
	}
	return endpoints
}

// Validate rejects configurations that could produce a non-positive budget.
func (c Config) Validate() error {
	var problems []error
	if !c.Mode.Valid() {
		problems = append(problems, fmt.Errorf("unknown enforcement mode %d", int(c.Mode)))
	}
	if c.DefaultTimeoutMs <= 0 {
		problems = append(problems, fmt.Errorf("default timeout must be positive, got %dms", c.DefaultTimeoutMs))
	}
	if c.OutboundReadTimeoutMs <= 0 {
		problems = append(problems, fmt.Errorf("outbound read timeout must be positive, got %dms", c.OutboundReadTimeoutMs))
	}
	for endpoint, ms := range c.EndpointTimeoutsMs {
		if ms <= 0 {
			problems = append(problems, fmt.Errorf("endpoint %q timeout must be positive, got %dms", endpoint, ms))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return apperrors.Wrap(apperrors.CodeInvalidConfig, "invalid deadline config", errors.Join(problems...))
}

// EndpointTimeouts looks up the annotated default timeout of an endpoint.
type EndpointTimeouts interface {
	EndpointTimeout(endpoint string) (time.Duration, bool)
}

// StaticEndpointTimeouts is a fixed endpoint-to-timeout table.
type StaticEndpointTimeouts map[string]time.Duration

// EndpointTimeout implements EndpointTimeouts.
func (s StaticEndpointTimeouts) EndpointTimeout(endpoint string) (time.Duration, bool) {
	d, ok := s[endpoint]
	if !ok || d <= 0 {
		return 0, false
	}
	return d, true
}
