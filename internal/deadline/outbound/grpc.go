package outbound

import (
	"context"
	"time"

	"github.com/louisbranch/deadlines/internal/deadline"
	"github.com/louisbranch/deadlines/internal/deadline/codec"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// UnaryClientInterceptor propagates the ambient deadline on unary calls.
func (p *Propagator) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		pl := p.plan(ctx, method, deadline.DispatchFramed)
		switch pl.action {
		case actionReject:
			return pl.rejection(deadline.DispatchFramed)
		case actionStamp:
			callCtx, cancel := p.stampFramed(ctx, pl.timeout)
			defer cancel()
			return invoker(callCtx, method, req, reply, cc, opts...)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor propagates the ambient deadline on streaming calls.
// A narrowed context lives until the stream finishes.
func (p *Propagator) StreamClientInterceptor() grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		pl := p.plan(ctx, method, deadline.DispatchFramed)
		switch pl.action {
		case actionReject:
			return nil, pl.rejection(deadline.DispatchFramed)
		case actionStamp:
			callCtx, cancel := p.stampFramed(ctx, pl.timeout)
			opts = append(opts, grpc.OnFinish(func(error) { cancel() }))
			stream, err := streamer(callCtx, desc, cc, method, opts...)
			if err != nil {
				cancel()
				return nil, err
			}
			return stream, nil
		}
		return streamer(ctx, desc, cc, method, opts...)
	}
}

// stampFramed attaches timeout to an outbound gRPC call. grpc-go writes the
// native header from the context deadline, so enforcing modes narrow the
// context; other modes only mirror the value in the shadow header.
func (p *Propagator) stampFramed(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if p.mode.EnforcesOutbound() {
		return context.WithTimeout(ctx, timeout)
	}
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(deadline.HeaderShadowTimeout, codec.FormatFramedTimeout(timeout))
	return metadata.NewOutgoingContext(ctx, md), func() {}
}
