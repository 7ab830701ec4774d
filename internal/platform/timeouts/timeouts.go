// Package timeouts defines the process-level timeout defaults shared by the
// relay service and the deadline interceptors.
package timeouts

import "time"

// DefaultRequest is the global request budget applied when no header or
// endpoint annotation supplies one.
const DefaultRequest = 10 * time.Second

// OutboundRead is the fallback budget stamped on outbound calls made outside
// any inbound request scope.
const OutboundRead = 10 * time.Second

// GRPCDial caps the wait time when dialing a downstream gRPC peer.
const GRPCDial = 2 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight requests during
// graceful shutdown.
const Shutdown = 5 * time.Second
