package outbound

import (
	"net/http"
	"strings"

	"github.com/louisbranch/deadlines/internal/deadline"
	"github.com/louisbranch/deadlines/internal/deadline/codec"
)

// Transport wraps base so HTTP requests carry the ambient deadline. A nil
// base uses http.DefaultTransport. Rejected requests never reach base.
func (p *Propagator) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &transport{propagator: p, base: base}
}

type transport struct {
	propagator *Propagator
	base       http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	dispatch := dispatchOf(req)
	pl := t.propagator.plan(req.Context(), req.URL.Host+req.URL.Path, dispatch)
	switch pl.action {
	case actionReject:
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, pl.rejection(dispatch)
	case actionStamp:
		out := req.Clone(req.Context())
		if dispatch == deadline.DispatchFramed {
			out.Header.Set(t.propagator.framedHeader(), codec.FormatFramedTimeout(pl.timeout))
		} else {
			out.Header.Set(deadline.HeaderProxyTimeout, codec.FormatMillis(pl.timeout))
		}
		return t.base.RoundTrip(out)
	}
	return t.base.RoundTrip(req)
}

// framedHeader picks the header gRPC-over-HTTP requests are stamped with.
func (p *Propagator) framedHeader() string {
	if p.mode.EnforcesOutbound() {
		return deadline.HeaderGRPCTimeout
	}
	return deadline.HeaderShadowTimeout
}

func dispatchOf(req *http.Request) deadline.Dispatch {
	if strings.HasPrefix(req.Header.Get("Content-Type"), "application/grpc") {
		return deadline.DispatchFramed
	}
	return deadline.DispatchHTTP
}
