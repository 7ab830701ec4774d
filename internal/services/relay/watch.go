package relay

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// watch streams the downstream serving status over a websocket, one text
// frame per probe. The connection is an upgrade, so no inbound deadline
// applies; each probe runs outside any request scope and carries the
// outbound fallback timeout instead.
func (h *handlers) watch(ws *websocket.Conn) {
	defer ws.Close()
	ctx := ws.Request().Context()

	if h.health == nil {
		_ = websocket.Message.Send(ws, "downstream gRPC not configured")
		return
	}

	ticker := time.NewTicker(h.watchInterval)
	defer ticker.Stop()
	for {
		msg := h.probe(ctx)
		if err := websocket.Message.Send(ws, msg); err != nil {
			h.logger.Debug("watch closed", zap.Error(err))
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *handlers) probe(ctx context.Context) string {
	resp, err := h.health.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		if isDeadlineError(err) {
			return "DEADLINE_EXCEEDED"
		}
		return "UNAVAILABLE"
	}
	return resp.GetStatus().String()
}
