package inbound

import (
	"context"
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/louisbranch/deadlines/internal/platform/requestctx"
	"google.golang.org/grpc/stats"
)

// MarkReceived records the request-received instant for HTTP requests. Mount
// it outermost so queueing inside later middleware counts against the budget.
func MarkReceived(clk clock.Clock) func(http.Handler) http.Handler {
	if clk == nil {
		clk = clock.New()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := requestctx.ReceivedAtFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithReceivedAt(r.Context(), clk.Now())))
		})
	}
}

// ReceiptHandler records the request-received instant for gRPC calls. grpc-go
// tags an RPC before running any interceptor, which makes this the earliest
// point the server sees the call.
type ReceiptHandler struct {
	clock clock.Clock
}

// NewReceiptHandler returns a stats handler stamping receipt instants from clk.
func NewReceiptHandler(clk clock.Clock) *ReceiptHandler {
	if clk == nil {
		clk = clock.New()
	}
	return &ReceiptHandler{clock: clk}
}

// TagRPC implements stats.Handler.
func (h *ReceiptHandler) TagRPC(ctx context.Context, _ *stats.RPCTagInfo) context.Context {
	if _, ok := requestctx.ReceivedAtFromContext(ctx); ok {
		return ctx
	}
	return requestctx.WithReceivedAt(ctx, h.clock.Now())
}

// HandleRPC implements stats.Handler.
func (h *ReceiptHandler) HandleRPC(context.Context, stats.RPCStats) {}

// TagConn implements stats.Handler.
func (h *ReceiptHandler) TagConn(ctx context.Context, _ *stats.ConnTagInfo) context.Context {
	return ctx
}

// HandleConn implements stats.Handler.
func (h *ReceiptHandler) HandleConn(context.Context, stats.ConnStats) {}
