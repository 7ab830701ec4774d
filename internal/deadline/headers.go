package deadline

import (
	"strings"

	"google.golang.org/grpc/metadata"
)

// Wire header names. Lookups are case-insensitive.
const (
	// HeaderGRPCTimeout is the framed-RPC native relative timeout.
	HeaderGRPCTimeout = "grpc-timeout"
	// HeaderShadowTimeout mirrors HeaderGRPCTimeout without triggering the
	// peer runtime's own enforcement.
	HeaderShadowTimeout = "x-deadlines-grpc-timeout"
	// HeaderRequestDeadline is the caller-declared relative deadline for HTTP
	// calls, in whole seconds or as an ISO-8601 duration.
	HeaderRequestDeadline = "x-request-deadline"
	// HeaderProxyTimeout is the sidecar proxy's relative timeout in
	// milliseconds.
	HeaderProxyTimeout = "x-envoy-expected-rq-timeout-ms"
	// HeaderDeadlineAt carries the absolute deadline computed at ingress as
	// an ISO-8601 UTC instant.
	HeaderDeadlineAt = "x-deadlines-deadline-at"
)

// Headers is the read-only view of inbound headers used by Determine.
// http.Header satisfies it directly.
type Headers interface {
	Get(key string) string
}

// MetadataHeaders adapts gRPC metadata to Headers.
type MetadataHeaders metadata.MD

// Get returns the first value stored under key.
func (m MetadataHeaders) Get(key string) string {
	values := metadata.MD(m).Get(strings.ToLower(key))
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// noHeaders is used when the caller passes nil.
type noHeaders struct{}

func (noHeaders) Get(string) string { return "" }
