// Package jwtecho adapts a jwtmiddleware.Gate to echo.
//
// Routes are matched by echo's c.Path(), so the gate's RouteTable holds echo
// patterns such as "/users/:id". Register the middleware with e.Use, not
// e.Pre, so the route is known when it runs.
package jwtecho

import (
	"errors"

	"github.com/labstack/echo/v4"

	jwtmiddleware "github.com/entrakit/go-entra-middleware"
	"github.com/entrakit/go-entra-middleware/core"
	"github.com/entrakit/go-entra-middleware/identity"
)

// IdentityKey is the echo.Context key holding the *identity.Identity.
const IdentityKey = "identity"

var ErrMissingIdentity = errors.New("no identity found in context")

type config struct {
	errorHandler func(echo.Context, error) error
}

// New returns an echo middleware that authenticates requests to protected
// routes with gate.
func New(gate *jwtmiddleware.Gate, opts ...Option) echo.MiddlewareFunc {
	cfg := &config{
		errorHandler: func(c echo.Context, err error) error {
			gate.HandleError(c.Response(), c.Request(), err)
			return nil
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !gate.RequiresAuth(c.Request(), c.Path()) {
				return next(c)
			}

			id, err := gate.Authenticate(c.Request())
			if err != nil {
				return cfg.errorHandler(c, err)
			}

			c.SetRequest(c.Request().WithContext(core.SetIdentity(c.Request().Context(), id)))
			c.Set(IdentityKey, id)
			return next(c)
		}
	}
}

// GetIdentity returns the identity stored by the middleware.
func GetIdentity(c echo.Context) (*identity.Identity, error) {
	id, ok := c.Get(IdentityKey).(*identity.Identity)
	if !ok || id == nil {
		return nil, ErrMissingIdentity
	}
	return id, nil
}
