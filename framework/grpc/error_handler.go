package jwtgrpc

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/entrakit/go-entra-middleware/core"
)

// ErrorHandler converts authentication errors to gRPC status errors.
type ErrorHandler func(error) error

// DefaultErrorHandler reports every authentication failure as
// codes.Unauthenticated carrying core.Message(err). Key resolution failures
// are included: the caller cannot tell them from an invalid token.
func DefaultErrorHandler(err error) error {
	if err == nil {
		return nil
	}
	return status.Error(codes.Unauthenticated, core.Message(err))
}
