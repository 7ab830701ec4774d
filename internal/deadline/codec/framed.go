// Package codec converts timeout values between time.Duration and the wire
// encodings carried by deadline headers.
//
// Every parser is total: malformed input yields ok=false instead of an error,
// and callers treat that as "no value present".
package codec

import (
	"math"
	"strconv"
	"time"
)

// maxFramedDigits is the widest magnitude a framed timeout may carry. Peers
// reject anything longer.
const maxFramedDigits = 8

const maxFramedValue = 99999999

// framedUnits is ordered coarsest first.
var framedUnits = []struct {
	suffix byte
	unit   time.Duration
}{
	{'H', time.Hour},
	{'M', time.Minute},
	{'S', time.Second},
	{'m', time.Millisecond},
	{'u', time.Microsecond},
	{'n', time.Nanosecond},
}

func framedUnit(suffix byte) (time.Duration, bool) {
	for _, u := range framedUnits {
		if u.suffix == suffix {
			return u.unit, true
		}
	}
	return 0, false
}

// ParseFramedTimeout decodes a framed-RPC timeout such as "3000m" or "1H".
// The value is up to eight ASCII digits followed by one of H, M, S, m, u, n.
func ParseFramedTimeout(value string) (time.Duration, bool) {
	if len(value) < 2 || len(value) > maxFramedDigits+1 {
		return 0, false
	}
	unit, ok := framedUnit(value[len(value)-1])
	if !ok {
		return 0, false
	}
	digits := value[:len(value)-1]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	if n > int64(math.MaxInt64/unit) {
		return 0, false
	}
	return time.Duration(n) * unit, true
}

// FormatFramedTimeout encodes d using the coarsest unit that represents it
// exactly in at most eight digits. When no unit is exact the value is rounded
// up in the finest unit that fits, so a budget is never shortened on the wire.
// Non-positive durations encode as "0n".
func FormatFramedTimeout(d time.Duration) string {
	if d <= 0 {
		return "0n"
	}
	for _, u := range framedUnits {
		if d%u.unit == 0 && d/u.unit <= maxFramedValue {
			return strconv.FormatInt(int64(d/u.unit), 10) + string(u.suffix)
		}
	}
	for i := len(framedUnits) - 1; i >= 0; i-- {
		u := framedUnits[i]
		n := ceilDiv(d, u.unit)
		if n <= maxFramedValue {
			return strconv.FormatInt(n, 10) + string(u.suffix)
		}
	}
	return strconv.FormatInt(maxFramedValue, 10) + "H"
}

func ceilDiv(d, unit time.Duration) int64 {
	n := int64(d / unit)
	if d%unit != 0 {
		n++
	}
	return n
}
