// Package deadline computes and carries the per-request time budget that
// bounds a chain of networked calls.
//
// A Deadline is computed once at ingress from the request-received instant
// plus the duration chosen by Determine. It rides the request context to every
// outbound call made while handling that request. Outbound calls only ever
// narrow that budget or pass it through; they never fabricate a new one.
//
// # Sources
//
// Determine reconciles the candidate sources with a fixed precedence:
//
//   - framed-RPC calls: the native grpc-timeout header, then the shadow
//     header, then the endpoint default, then the global default;
//   - HTTP calls: the smallest positive value among the deadline header and
//     the proxy timeout header, then the endpoint default, then the global
//     default.
//
// # Modes
//
// Mode decides whether an exceeded deadline rejects the call or is only
// observed. It is fixed for the life of the process and injected into the
// interceptors through Config.
package deadline
