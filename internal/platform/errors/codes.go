// Package errors provides the structured error type returned at deadline
// boundaries, with mappings to gRPC status codes and HTTP status codes.
package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeDeadlineExceeded marks a call rejected because its deadline passed.
	CodeDeadlineExceeded Code = "DEADLINE_EXCEEDED"

	// CodeInvalidConfig marks configuration rejected at startup.
	CodeInvalidConfig Code = "INVALID_CONFIG"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeDeadlineExceeded:
		return codes.DeadlineExceeded
	case CodeInvalidConfig:
		return codes.InvalidArgument
	default:
		return codes.Unknown
	}
}

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	case CodeInvalidConfig:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
