// Package grpc holds client and server helpers shared by gRPC services.
package grpc

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Dialer creates client connections.
type Dialer interface {
	NewClient(addr string, opts ...gogrpc.DialOption) (*gogrpc.ClientConn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(addr string, opts ...gogrpc.DialOption) (*gogrpc.ClientConn, error)

// NewClient implements Dialer.
func (fn DialerFunc) NewClient(addr string, opts ...gogrpc.DialOption) (*gogrpc.ClientConn, error) {
	return fn(addr, opts...)
}

// DialStage describes where a dial attempt failed.
type DialStage string

const (
	// DialStageConnect indicates the client could not be created.
	DialStageConnect DialStage = "connect"
	// DialStageHealth indicates the peer never reported SERVING.
	DialStageHealth DialStage = "health"
)

// DialError wraps dial failures with the stage that failed.
type DialError struct {
	Addr  string
	Stage DialStage
	Err   error
}

// Error implements the error interface.
func (e *DialError) Error() string {
	if e == nil {
		return "gRPC dial error"
	}
	return fmt.Sprintf("gRPC %s error for %s: %v", e.Stage, e.Addr, e.Err)
}

// Unwrap returns the underlying error.
func (e *DialError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ClientInterceptors is implemented by client-side middleware that wraps
// every call on a connection, such as the deadline propagator.
type ClientInterceptors interface {
	UnaryClientInterceptor() gogrpc.UnaryClientInterceptor
	StreamClientInterceptor() gogrpc.StreamClientInterceptor
}

// DefaultClientDialOptions returns the dial options every internal client
// uses: plaintext transport, trace propagation, then the given interceptors in
// order.
func DefaultClientDialOptions(interceptors ...ClientInterceptors) []gogrpc.DialOption {
	opts := []gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
	if len(interceptors) == 0 {
		return opts
	}
	unary := make([]gogrpc.UnaryClientInterceptor, 0, len(interceptors))
	stream := make([]gogrpc.StreamClientInterceptor, 0, len(interceptors))
	for _, ic := range interceptors {
		unary = append(unary, ic.UnaryClientInterceptor())
		stream = append(stream, ic.StreamClientInterceptor())
	}
	return append(opts,
		gogrpc.WithChainUnaryInterceptor(unary...),
		gogrpc.WithChainStreamInterceptor(stream...),
	)
}

// DialWithHealth creates a client for addr and waits until its health service
// reports SERVING, bounded by dialTimeout when positive. The connection is
// closed if the peer never becomes healthy.
func DialWithHealth(ctx context.Context, dialer Dialer, addr string, dialTimeout time.Duration, logger *zap.Logger, opts ...gogrpc.DialOption) (*gogrpc.ClientConn, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if dialer == nil {
		dialer = DialerFunc(gogrpc.NewClient)
	}

	dialCtx := ctx
	if dialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, dialTimeout)
		defer cancel()
	}

	conn, err := dialer.NewClient(addr, opts...)
	if err != nil {
		return nil, &DialError{Addr: addr, Stage: DialStageConnect, Err: err}
	}
	if err := WaitForHealth(dialCtx, conn, "", logger); err != nil {
		_ = conn.Close()
		return nil, &DialError{Addr: addr, Stage: DialStageHealth, Err: err}
	}
	return conn, nil
}
