package deadline

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Deadline is an absolute instant measured against a reference clock. The
// zero value means no deadline is tracked.
type Deadline struct {
	clock clock.Clock
	at    time.Time
}

// New returns a deadline at the given instant on clk.
func New(clk clock.Clock, at time.Time) Deadline {
	if clk == nil {
		clk = clock.New()
	}
	return Deadline{clock: clk, at: at}
}

// At returns the absolute instant.
func (d Deadline) At() time.Time {
	return d.at
}

// IsZero reports whether no deadline is tracked.
func (d Deadline) IsZero() bool {
	return d.clock == nil && d.at.IsZero()
}

// Remaining returns the time left before the deadline. It is negative once
// the deadline has passed.
func (d Deadline) Remaining() time.Duration {
	if d.IsZero() {
		return 0
	}
	return d.at.Sub(d.clock.Now())
}

// Expired reports whether no time remains.
func (d Deadline) Expired() bool {
	return d.Remaining() <= 0
}
