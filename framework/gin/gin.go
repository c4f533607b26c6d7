// Package jwtgin adapts a jwtmiddleware.Gate to gin.
//
// Routes are matched by gin's FullPath, so the gate's RouteTable holds gin
// patterns such as "/users/:id".
package jwtgin

import (
	"errors"

	"github.com/gin-gonic/gin"

	jwtmiddleware "github.com/entrakit/go-entra-middleware"
	"github.com/entrakit/go-entra-middleware/core"
	"github.com/entrakit/go-entra-middleware/identity"
)

// Keys set on the gin.Context after a successful authentication.
const (
	IdentityKey = "identity"
	UsernameKey = "username"
	EmailKey    = "email"
	RolesKey    = "roles"
)

var (
	ErrMissingIdentity = errors.New("no identity found in context")
	ErrInvalidIdentity = errors.New("invalid identity type")
)

type config struct {
	errorHandler func(*gin.Context, error)
}

// New returns a gin middleware that authenticates requests to protected
// routes with gate. Unprotected routes call c.Next without reading any
// header.
func New(gate *jwtmiddleware.Gate, opts ...Option) gin.HandlerFunc {
	cfg := &config{
		errorHandler: func(c *gin.Context, err error) {
			gate.HandleError(c.Writer, c.Request, err)
			c.Abort()
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		if !gate.RequiresAuth(c.Request, c.FullPath()) {
			c.Next()
			return
		}

		id, err := gate.Authenticate(c.Request)
		if err != nil {
			cfg.errorHandler(c, err)
			if !c.IsAborted() {
				c.Abort()
			}
			return
		}

		c.Request = c.Request.WithContext(core.SetIdentity(c.Request.Context(), id))
		c.Set(IdentityKey, id)
		c.Set(UsernameKey, id.Username)
		c.Set(EmailKey, id.Email)
		c.Set(RolesKey, id.Roles)
		c.Next()
	}
}

// GetIdentity returns the identity stored by the middleware.
func GetIdentity(c *gin.Context) (*identity.Identity, error) {
	value, exists := c.Get(IdentityKey)
	if !exists {
		return nil, ErrMissingIdentity
	}

	id, ok := value.(*identity.Identity)
	if !ok {
		return nil, ErrInvalidIdentity
	}
	return id, nil
}
