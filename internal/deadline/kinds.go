package deadline

// Dispatch is the wire protocol of a single call. It is decided once per call
// and every protocol-specific branch keys off it.
type Dispatch int

const (
	// DispatchHTTP is a conventional HTTP call.
	DispatchHTTP Dispatch = iota
	// DispatchFramed is a framed-RPC (gRPC) call.
	DispatchFramed
)

// String returns the metrics label for the dispatch.
func (d Dispatch) String() string {
	switch d {
	case DispatchHTTP:
		return "http"
	case DispatchFramed:
		return "grpc"
	default:
		return "unknown"
	}
}

// Source labels which input produced the effective timeout. It exists for
// observability only.
type Source int

const (
	// SourceEndpointDefault is the per-endpoint annotated default.
	SourceEndpointDefault Source = iota
	// SourceGlobalDefault is the process-wide default.
	SourceGlobalDefault
	// SourceFramedHeader is the framed-RPC native or shadow timeout header.
	SourceFramedHeader
	// SourceDeadlineHeader is the HTTP deadline header.
	SourceDeadlineHeader
	// SourceProxyHeader is the infrastructure proxy timeout header.
	SourceProxyHeader
)

// String returns the metrics label for the source.
func (s Source) String() string {
	switch s {
	case SourceEndpointDefault:
		return "endpoint_default"
	case SourceGlobalDefault:
		return "global_default"
	case SourceFramedHeader:
		return "grpc_timeout_header"
	case SourceDeadlineHeader:
		return "deadline_header"
	case SourceProxyHeader:
		return "proxy_timeout_header"
	default:
		return "unknown"
	}
}

// Direction says which side of a call observed a deadline.
type Direction string

const (
	// DirectionInbound is a deadline checked when a call arrives.
	DirectionInbound  Direction = "inbound"
	// DirectionOutbound is a deadline checked before calling a peer.
	DirectionOutbound Direction = "outbound"
)
