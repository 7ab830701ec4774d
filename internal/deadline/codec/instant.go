package codec

import (
	"strings"
	"time"
)

// FormatInstant encodes an absolute deadline as an ISO-8601 UTC timestamp.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseInstant decodes a timestamp written by FormatInstant. Fractional
// seconds are optional.
func ParseInstant(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
