// Package relay runs a small gateway that exercises deadline handling on
// both sides of a call: it guards inbound HTTP and gRPC traffic and forwards
// work to downstream peers through the propagator.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/louisbranch/deadlines/internal/deadline"
	"github.com/louisbranch/deadlines/internal/deadline/inbound"
	"github.com/louisbranch/deadlines/internal/deadline/metrics"
	"github.com/louisbranch/deadlines/internal/deadline/outbound"
	platformgrpc "github.com/louisbranch/deadlines/internal/platform/grpc"
	"github.com/louisbranch/deadlines/internal/platform/timeouts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const defaultWatchInterval = time.Second

// Config configures the relay server.
type Config struct {
	HTTPAddr string
	GRPCAddr string
	// DownstreamGRPCAddr is the peer probed by /v1/check and /v1/watch.
	// Empty disables both.
	DownstreamGRPCAddr string
	// DownstreamHTTPURL is the resource proxied by /v1/fetch. Empty disables
	// it.
	DownstreamHTTPURL string
	Deadline          deadline.Config
	WatchInterval     time.Duration
	Logger            *zap.Logger
	Clock             clock.Clock
	// Registry collects relay metrics. A fresh registry is used when nil.
	Registry *prometheus.Registry
}

// Server hosts the relay HTTP and gRPC listeners.
type Server struct {
	logger       *zap.Logger
	httpListener net.Listener
	grpcListener net.Listener
	httpServer   *http.Server
	grpcServer   *grpc.Server
	health       *health.Server
	downstream   *grpc.ClientConn
	handler      http.Handler
}

// NewServer builds the relay, binding both listeners and dialing the
// downstream gRPC peer when one is configured.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	if err := cfg.Deadline.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	recorder := metrics.NewPrometheus(registry)

	guard, err := inbound.NewGuard(cfg.Deadline,
		inbound.WithClock(clk),
		inbound.WithRecorder(recorder),
		inbound.WithLogger(logger.Named("inbound")),
		inbound.WithHTTPEndpoint(routeEndpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("init inbound guard: %w", err)
	}
	propagator, err := outbound.NewPropagator(cfg.Deadline,
		outbound.WithRecorder(recorder),
		outbound.WithLogger(logger.Named("outbound")),
	)
	if err != nil {
		return nil, fmt.Errorf("init outbound propagator: %w", err)
	}

	s := &Server{logger: logger}
	h := &handlers{
		httpClient:    &http.Client{Transport: propagator.Transport(http.DefaultTransport)},
		downstreamURL: cfg.DownstreamHTTPURL,
		watchInterval: cfg.WatchInterval,
		logger:        logger,
	}
	if h.watchInterval <= 0 {
		h.watchInterval = defaultWatchInterval
	}
	if cfg.DownstreamGRPCAddr != "" {
		conn, err := platformgrpc.DialWithHealth(ctx, nil, cfg.DownstreamGRPCAddr, timeouts.GRPCDial, logger,
			platformgrpc.DefaultClientDialOptions(propagator)...)
		if err != nil {
			return nil, fmt.Errorf("dial downstream gRPC: %w", err)
		}
		s.downstream = conn
		h.health = grpc_health_v1.NewHealthClient(conn)
	}

	s.handler = newRouter(h, guard, clk, registry)
	s.grpcServer = grpc.NewServer(
		grpc.StatsHandler(inbound.NewReceiptHandler(clk)),
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(guard.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(guard.StreamServerInterceptor()),
	)
	s.health = platformgrpc.RegisterHealth(s.grpcServer)

	if s.httpListener, err = net.Listen("tcp", cfg.HTTPAddr); err != nil {
		s.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}
	if s.grpcListener, err = net.Listen("tcp", cfg.GRPCAddr); err != nil {
		s.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
	}
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}
	return s, nil
}

// Handler returns the HTTP routes without a listener.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// HTTPAddr returns the bound HTTP address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the bound gRPC address.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// Serve runs both listeners until ctx ends or one of them fails, then shuts
// the other down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	s.httpServer.BaseContext = func(net.Listener) context.Context { return ctx }
	s.logger.Info("relay listening",
		zap.String("http_addr", s.HTTPAddr()),
		zap.String("grpc_addr", s.GRPCAddr()),
	)

	serveErr := make(chan error, 2)
	go func() {
		if err := s.httpServer.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("serve HTTP: %w", err)
			return
		}
		serveErr <- nil
	}()
	go func() {
		if err := s.grpcServer.Serve(s.grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			serveErr <- fmt.Errorf("serve gRPC: %w", err)
			return
		}
		serveErr <- nil
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}
	s.shutdown()
	return err
}

func (s *Server) shutdown() {
	s.health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("shutdown HTTP server", zap.Error(err))
	}
	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		s.grpcServer.Stop()
	}
}

// Close releases listeners and the downstream connection.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.httpListener != nil {
		_ = s.httpListener.Close()
	}
	if s.grpcListener != nil {
		_ = s.grpcListener.Close()
	}
	if s.downstream != nil {
		if err := s.downstream.Close(); err != nil {
			s.logger.Warn("close downstream connection", zap.Error(err))
		}
	}
}
