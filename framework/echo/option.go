package jwtecho

import (
	"github.com/labstack/echo/v4"
)

// Option defines a functional option for configuring the middleware
type Option func(*config)

// WithErrorHandler sets a custom error handler. Its return value is returned
// from the middleware, so returning an *echo.HTTPError hands the failure to
// echo's HTTPErrorHandler.
func WithErrorHandler(handler func(echo.Context, error) error) Option {
	return func(cfg *config) {
		if handler != nil {
			cfg.errorHandler = handler
		}
	}
}
