package inbound

import (
	"context"

	"github.com/louisbranch/deadlines/internal/deadline"
	"github.com/louisbranch/deadlines/internal/deadline/codec"
	"github.com/louisbranch/deadlines/internal/platform/requestctx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// UnaryServerInterceptor guards unary gRPC calls.
func (g *Guard) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		updatedCtx, err := g.admitGRPC(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(updatedCtx, req)
	}
}

// StreamServerInterceptor guards client- and server-streaming gRPC calls.
// Bidirectional streams have no bounded request lifetime and pass through
// untouched.
func (g *Guard) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if info.IsClientStream && info.IsServerStream {
			return handler(srv, stream)
		}
		updatedCtx, err := g.admitGRPC(stream.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: stream, ctx: updatedCtx})
	}
}

// wrappedServerStream overrides the context for a gRPC stream.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the updated stream context.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

func (g *Guard) admitGRPC(ctx context.Context, fullMethod string) (context.Context, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	adm := g.admit(ctx, fullMethod, deadline.DispatchFramed, framedHeaders{md: md, ctx: ctx})
	if adm.reject {
		return nil, deadline.ExceededError(deadline.DirectionInbound, deadline.DispatchFramed, adm.past)
	}

	if len(md.Get(deadline.HeaderDeadlineAt)) == 0 {
		stamped := md.Copy()
		stamped.Set(deadline.HeaderDeadlineAt, codec.FormatInstant(adm.deadline.At()))
		ctx = metadata.NewIncomingContext(ctx, stamped)
	}
	return deadline.WithDeadline(ctx, adm.deadline), nil
}

// framedHeaders exposes incoming metadata to Determine. grpc-go strips the
// native timeout header and turns it into the context deadline, so the value
// is rebuilt from that deadline relative to the receipt instant.
type framedHeaders struct {
	md  metadata.MD
	ctx context.Context
}

func (f framedHeaders) Get(key string) string {
	value := deadline.MetadataHeaders(f.md).Get(key)
	if value != "" || key != deadline.HeaderGRPCTimeout {
		return value
	}
	ctxDeadline, ok := f.ctx.Deadline()
	if !ok {
		return ""
	}
	receivedAt, ok := requestctx.ReceivedAtFromContext(f.ctx)
	if !ok {
		return ""
	}
	remaining := ctxDeadline.Sub(receivedAt)
	if remaining <= 0 {
		return ""
	}
	return codec.FormatFramedTimeout(remaining)
}
