package codec

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sosodev/duration"
)

// ParseHTTPDeadline decodes a caller-declared relative deadline. Bare
// integers are whole seconds (the legacy form); anything else is read as an
// ISO-8601 duration such as "PT30S" or "PT1M30S".
func ParseHTTPDeadline(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		if seconds > int64(math.MaxInt64/time.Second) || seconds < int64(math.MinInt64/time.Second) {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	parsed, err := duration.Parse(value)
	if err != nil {
		return 0, false
	}
	// Calendar components make the conversion approximate and can overflow.
	if parsed.Years != 0 || parsed.Months != 0 {
		return 0, false
	}
	var d time.Duration
	for _, c := range []struct {
		n    float64
		unit time.Duration
	}{
		{parsed.Weeks, 7 * 24 * time.Hour},
		{parsed.Days, 24 * time.Hour},
		{parsed.Hours, time.Hour},
		{parsed.Minutes, time.Minute},
		{parsed.Seconds, time.Second},
	} {
		ns := math.Round(c.n * float64(c.unit))
		// float64(math.MaxInt64) rounds up to 2^63, so >= keeps the conversion in range.
		if ns < 0 || math.IsNaN(ns) || ns >= float64(math.MaxInt64) {
			return 0, false
		}
		part := time.Duration(ns)
		if d > math.MaxInt64-part {
			return 0, false
		}
		d += part
	}
	if parsed.Negative {
		d = -d
	}
	return d, true
}

// ParseMillisHeader decodes a bare integer count of milliseconds.
func ParseMillisHeader(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	if ms > int64(math.MaxInt64/time.Millisecond) || ms < int64(math.MinInt64/time.Millisecond) {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

// FormatMillis encodes d as whole milliseconds, rounding up. Positive
// durations never encode as "0" since proxies read zero as "no timeout".
func FormatMillis(d time.Duration) string {
	if d <= 0 {
		return "0"
	}
	return strconv.FormatInt(ceilDiv(d, time.Millisecond), 10)
}
