package deadline

import (
	"fmt"
	"strings"
)

// Mode is the operator-selected enforcement policy.
type Mode int

const (
	// ModeMetricsOnly observes deadlines without communicating or enforcing them.
	ModeMetricsOnly Mode = iota
	// ModePropagateOnly communicates deadlines downstream without enforcing them.
	ModePropagateOnly
	// ModeEnforceInbound rejects expired inbound requests.
	ModeEnforceInbound
	// ModeEnforceOutbound rejects outbound calls whose budget is spent.
	ModeEnforceOutbound
	// ModeEnforceAll rejects in both directions.
	ModeEnforceAll
)

var modeNames = map[Mode]string{
	ModeMetricsOnly:     "metrics-only",
	ModePropagateOnly:   "propagate-only",
	ModeEnforceInbound:  "enforce-inbound",
	ModeEnforceOutbound: "enforce-outbound",
	ModeEnforceAll:      "enforce-all",
}

// ParseMode reads a mode name. Matching ignores case and accepts underscores
// in place of dashes.
func ParseMode(value string) (Mode, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "_", "-")
	for mode, name := range modeNames {
		if name == normalized {
			return mode, nil
		}
	}
	return ModeMetricsOnly, fmt.Errorf("unknown enforcement mode %q", value)
}

// String returns the configuration name of the mode.
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// UnmarshalText implements encoding.TextUnmarshaler so modes load from env
// and flags.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("unknown enforcement mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// EnforcesInbound reports whether expired inbound requests are rejected.
func (m Mode) EnforcesInbound() bool {
	return m == ModeEnforceInbound || m == ModeEnforceAll
}

// EnforcesOutbound reports whether outbound calls with a spent budget are
// rejected.
func (m Mode) EnforcesOutbound() bool {
	return m == ModeEnforceOutbound || m == ModeEnforceAll
}

// Propagates reports whether deadlines are communicated downstream.
func (m Mode) Propagates() bool {
	return m != ModeMetricsOnly
}
