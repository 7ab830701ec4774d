package deadline

import (
	"time"

	"github.com/louisbranch/deadlines/internal/deadline/codec"
)

// Request holds the inputs of a deadline determination.
type Request struct {
	Dispatch Dispatch
	Headers  Headers
	// EndpointDefault is the annotated timeout of the endpoint. Zero or
	// negative means the endpoint has none.
	EndpointDefault time.Duration
	// GlobalDefault is the process-wide timeout. Config.Validate guarantees
	// it is positive.
	GlobalDefault time.Duration
}

// Decision is the effective timeout and the source that produced it.
type Decision struct {
	Timeout time.Duration
	Source  Source
}

// Determine picks the effective timeout for a call. It is pure: no clock
// reads, no I/O, and malformed header values count as absent.
func Determine(req Request) Decision {
	headers := req.Headers
	if headers == nil {
		headers = noHeaders{}
	}

	switch req.Dispatch {
	case DispatchFramed:
		if d, ok := positive(codec.ParseFramedTimeout(headers.Get(HeaderGRPCTimeout))); ok {
			return Decision{Timeout: d, Source: SourceFramedHeader}
		}
		if d, ok := positive(codec.ParseFramedTimeout(headers.Get(HeaderShadowTimeout))); ok {
			return Decision{Timeout: d, Source: SourceFramedHeader}
		}
	default:
		if decision, ok := minimumHTTPCandidate(headers); ok {
			return decision
		}
	}
	return fallback(req)
}

// minimumHTTPCandidate returns the tightest valid HTTP header. Candidates are
// listed in tie-break order: on equal durations the earlier one keeps the
// source label.
func minimumHTTPCandidate(headers Headers) (Decision, bool) {
	candidates := []struct {
		source Source
		parse  func(string) (time.Duration, bool)
		header string
	}{
		{SourceDeadlineHeader, codec.ParseHTTPDeadline, HeaderRequestDeadline},
		{SourceProxyHeader, codec.ParseMillisHeader, HeaderProxyTimeout},
	}

	var best Decision
	found := false
	for _, c := range candidates {
		d, ok := positive(c.parse(headers.Get(c.header)))
		if !ok {
			continue
		}
		if !found || d < best.Timeout {
			best = Decision{Timeout: d, Source: c.source}
			found = true
		}
	}
	return best, found
}

func fallback(req Request) Decision {
	if req.EndpointDefault > 0 {
		return Decision{Timeout: req.EndpointDefault, Source: SourceEndpointDefault}
	}
	return Decision{Timeout: req.GlobalDefault, Source: SourceGlobalDefault}
}

func positive(d time.Duration, ok bool) (time.Duration, bool) {
	if !ok || d <= 0 {
		return 0, false
	}
	return d, true
}
