package outbound

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/deadlines/internal/deadline"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func okResponse(req *http.Request) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("")),
		Header:     make(http.Header),
		Request:    req,
	}
}

func TestTransportStampsProxyTimeoutOnCopy(t *testing.T) {
	fx := newPropagatorFixture(t, deadline.ModePropagateOnly)

	var sent *http.Request
	rt := fx.propagator.Transport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		sent = req
		return okResponse(req), nil
	}))

	req, _ := http.NewRequestWithContext(fx.ambient(2500*time.Millisecond), http.MethodGet, "http://downstream/v1/items", nil)
	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatalf("round trip: %v", err)
	}

	if sent == req {
		t.Fatal("expected a copy of the request to be sent")
	}
	if got := sent.Header.Get(deadline.HeaderProxyTimeout); got != "2500" {
		t.Fatalf("proxy timeout = %q, want 2500", got)
	}
	if got := req.Header.Get(deadline.HeaderProxyTimeout); got != "" {
		t.Fatalf("expected caller request untouched, got %q", got)
	}
}

func TestTransportReplacesExistingProxyTimeout(t *testing.T) {
	fx := newPropagatorFixture(t, deadline.ModeEnforceAll)

	var sent *http.Request
	rt := fx.propagator.Transport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		sent = req
		return okResponse(req), nil
	}))

	req, _ := http.NewRequestWithContext(fx.ambient(time.Second), http.MethodGet, "http://downstream/", nil)
	req.Header.Set(deadline.HeaderProxyTimeout, "60000")
	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if got := sent.Header.Values(deadline.HeaderProxyTimeout); len(got) != 1 || got[0] != "1000" {
		t.Fatalf("expected exactly one 1000ms header, got %v", got)
	}
}

func TestTransportFallbackWithoutAmbientDeadline(t *testing.T) {
	fx := newPropagatorFixture(t, deadline.ModeEnforceInbound)

	var sent *http.Request
	rt := fx.propagator.Transport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		sent = req
		return okResponse(req), nil
	}))
	req, _ := http.NewRequest(http.MethodGet, "http://downstream/", nil)
	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if got := sent.Header.Get(deadline.HeaderProxyTimeout); got != "7000" {
		t.Fatalf("proxy timeout = %q, want 7000", got)
	}
}

func TestTransportFramedDispatch(t *testing.T) {
	tests := []struct {
		name   string
		mode   deadline.Mode
		header string
	}{
		{name: "enforcing stamps native header", mode: deadline.ModeEnforceOutbound, header: deadline.HeaderGRPCTimeout},
		{name: "propagating stamps shadow header", mode: deadline.ModePropagateOnly, header: deadline.HeaderShadowTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newPropagatorFixture(t, tt.mode)
			var sent *http.Request
			rt := fx.propagator.Transport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
				sent = req
				return okResponse(req), nil
			}))

			req, _ := http.NewRequestWithContext(fx.ambient(3*time.Second), http.MethodPost, "http://downstream/svc.Echo/Say", nil)
			req.Header.Set("Content-Type", "application/grpc")
			if _, err := rt.RoundTrip(req); err != nil {
				t.Fatalf("round trip: %v", err)
			}
			if got := sent.Header.Get(tt.header); got != "3S" {
				t.Fatalf("%s = %q, want 3S", tt.header, got)
			}
			if got := sent.Header.Get(deadline.HeaderProxyTimeout); got != "" {
				t.Fatalf("expected no proxy header on framed call, got %q", got)
			}
		})
	}
}

func TestTransportExpiredPropagateOnlySendsUnmodified(t *testing.T) {
	fx := newPropagatorFixture(t, deadline.ModePropagateOnly)

	var sent *http.Request
	rt := fx.propagator.Transport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		sent = req
		return okResponse(req), nil
	}))
	req, _ := http.NewRequestWithContext(fx.ambient(-150*time.Millisecond), http.MethodGet, "http://downstream/", nil)

	if _, err := rt.RoundTrip(req); err != nil {
		t.Fatalf("expected call to proceed, got %v", err)
	}
	if sent != req {
		t.Fatal("expected the original request to be sent")
	}
	if len(sent.Header) != 0 {
		t.Fatalf("expected no headers added, got %v", sent.Header)
	}
}

func TestTransportExpiredEnforceOutboundFailsWithoutNetwork(t *testing.T) {
	fx := newPropagatorFixture(t, deadline.ModeEnforceOutbound)

	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	client := &http.Client{Transport: fx.propagator.Transport(server.Client().Transport)}
	req, _ := http.NewRequestWithContext(fx.ambient(-time.Second), http.MethodGet, server.URL, nil)

	resp, err := client.Do(req)
	if err == nil {
		_ = resp.Body.Close()
		t.Fatal("expected deadline rejection")
	}
	if !errors.Is(err, deadline.ErrDeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if hits != 0 {
		t.Fatalf("expected no network attempt, got %d hits", hits)
	}
}
