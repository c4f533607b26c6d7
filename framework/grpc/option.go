package jwtgrpc

import (
	"errors"

	jwtmiddleware "github.com/entrakit/go-entra-middleware"
)

// Option configures the Interceptor.
type Option func(*Interceptor) error

// Logger defines an optional logging interface compatible with log/slog.
type Logger = jwtmiddleware.Logger

var ErrGateNil = errors.New("gate cannot be nil")

// WithProtectedMethods replaces the protected method table with one holding
// methods, e.g. "/orders.v1.Orders/Create".
func WithProtectedMethods(methods ...string) Option {
	return func(i *Interceptor) error {
		if len(methods) == 0 {
			return errors.New("protected methods cannot be empty")
		}
		i.methods = jwtmiddleware.NewRouteTable(methods...)
		return nil
	}
}

// WithTokenExtractor sets a custom token extractor function.
// Default is MetadataTokenExtractor which extracts from "authorization" metadata.
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(i *Interceptor) error {
		if extractor == nil {
			return errors.New("token extractor cannot be nil")
		}
		i.tokenExtractor = extractor
		return nil
	}
}

// WithErrorHandler sets a custom error handler function.
// Default is DefaultErrorHandler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(i *Interceptor) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		i.errorHandler = handler
		return nil
	}
}

// WithLogger sets an optional logger for the interceptor.
func WithLogger(logger Logger) Option {
	return func(i *Interceptor) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		i.logger = logger
		return nil
	}
}
