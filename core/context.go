package core

import (
	"context"

	"github.com/entrakit/go-entra-middleware/identity"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	identityKey contextKey = iota
)

// SetIdentity stores the verified identity in the context.
// This is a helper for adapters to call after a successful Authenticate.
func SetIdentity(ctx context.Context, id *identity.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity retrieves the verified identity from the context.
//
// Example usage:
//
//	id, err := core.GetIdentity(r.Context())
//	if err != nil {
//	    return err
//	}
//	fmt.Println(id.Username)
func GetIdentity(ctx context.Context) (*identity.Identity, error) {
	id, ok := ctx.Value(identityKey).(*identity.Identity)
	if !ok || id == nil {
		return nil, ErrIdentityNotFound
	}
	return id, nil
}

// GetClaims returns the full verified claim set of the authenticated
// caller, including claims the identity does not map.
func GetClaims(ctx context.Context) (map[string]any, error) {
	id, err := GetIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return id.Claims, nil
}

// HasIdentity checks if an identity exists in the context.
func HasIdentity(ctx context.Context) bool {
	id, ok := ctx.Value(identityKey).(*identity.Identity)
	return ok && id != nil
}

// IdentityFromContext is the comma-ok form of GetIdentity.
func IdentityFromContext(ctx context.Context) (*identity.Identity, bool) {
	id, err := GetIdentity(ctx)
	return id, err == nil
}
