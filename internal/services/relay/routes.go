package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"github.com/louisbranch/deadlines/internal/deadline"
	"github.com/louisbranch/deadlines/internal/deadline/inbound"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"
	"google.golang.org/grpc/codes"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
)

// maxFetchBody caps how much of a downstream body /v1/fetch relays.
const maxFetchBody = 1 << 20

type handlers struct {
	health        grpc_health_v1.HealthClient
	httpClient    *http.Client
	downstreamURL string
	watchInterval time.Duration
	logger        *zap.Logger
}

func newRouter(h *handlers, guard *inbound.Guard, clk clock.Clock, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(inbound.MarkReceived(clk))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(guard.Middleware)
		r.Get("/v1/check", h.check)
		r.Get("/v1/fetch", h.fetch)
		r.Handle("/v1/watch", websocket.Handler(h.watch))
	})
	return r
}

// routeEndpoint names HTTP requests by their chi route pattern so endpoint
// timeouts and metric labels stay bounded.
func routeEndpoint(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return r.Method + " " + pattern
		}
	}
	return r.Method + " " + r.URL.Path
}

func (h *handlers) check(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		http.Error(w, "downstream gRPC not configured", http.StatusServiceUnavailable)
		return
	}
	resp, err := h.health.Check(r.Context(), &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		h.writeCallError(w, "check", err)
		return
	}
	body, err := protojson.Marshal(resp)
	if err != nil {
		h.logger.Error("encode health response", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (h *handlers) fetch(w http.ResponseWriter, r *http.Request) {
	if h.downstreamURL == "" {
		http.Error(w, "downstream HTTP not configured", http.StatusServiceUnavailable)
		return
	}
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, h.downstreamURL, nil)
	if err != nil {
		h.logger.Error("build downstream request", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.writeCallError(w, "fetch", err)
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, io.LimitReader(resp.Body, maxFetchBody)); err != nil {
		h.logger.Warn("relay downstream body", zap.Error(err))
	}
}

// writeCallError maps a failed downstream call to a gateway status. Only
// deadline failures become 504.
func (h *handlers) writeCallError(w http.ResponseWriter, route string, err error) {
	if isDeadlineError(err) {
		http.Error(w, "deadline exceeded", http.StatusGatewayTimeout)
		return
	}
	h.logger.Warn("downstream call failed", zap.String("route", route), zap.Error(err))
	http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
}

func isDeadlineError(err error) bool {
	return errors.Is(err, deadline.ErrDeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		status.Code(err) == codes.DeadlineExceeded
}
