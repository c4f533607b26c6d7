package core

import (
	"context"
	"time"

	"github.com/entrakit/go-entra-middleware/identity"
)

// Verifier verifies a raw token and returns its full claim set.
// *validator.Validator satisfies this interface.
type Verifier interface {
	ValidateToken(ctx context.Context, token string) (map[string]any, error)
}

// ClaimsExtractor maps verified claims to an identity.
// *identity.Extractor satisfies this interface.
type ClaimsExtractor interface {
	Extract(claims map[string]any) *identity.Identity
}

// Enricher adds profile attributes to a user identity after verification.
// A returned error is logged and authentication still succeeds, so
// implementations should leave the identity usable on failure.
// *userinfo.Client satisfies this interface.
type Enricher interface {
	Enrich(ctx context.Context, id *identity.Identity) error
}

// Logger defines an optional logging interface for the core pipeline.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Core is the framework-agnostic authentication engine.
type Core struct {
	verifier  Verifier
	extractor ClaimsExtractor
	enricher  Enricher
	logger    Logger
}

// Authenticate verifies token and returns the caller identity.
//
//   - An empty token returns a *MissingTokenError.
//   - A verification failure is returned as-is; the verifier is expected to
//     return *InvalidTokenError or *KeyResolutionError.
func (c *Core) Authenticate(ctx context.Context, token string) (*identity.Identity, error) {
	if token == "" {
		if c.logger != nil {
			c.logger.Warn("no token provided and credentials are required")
		}
		return nil, &MissingTokenError{}
	}

	start := time.Now()
	claims, err := c.verifier.ValidateToken(ctx, token)
	duration := time.Since(start)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("token verification failed", "error", err, "duration", duration)
		}
		return nil, err
	}

	id := c.extractor.Extract(claims)

	// Client-credentials callers have no user to look up.
	if c.enricher != nil && !id.ClientCredentials && id.Username != "" {
		if err := c.enricher.Enrich(ctx, id); err != nil && c.logger != nil {
			c.logger.Warn("identity enrichment failed", "username", id.Username, "error", err)
		}
	}

	if c.logger != nil {
		c.logger.Debug("token verified", "username", id.Username, "roles", len(id.Roles), "duration", duration)
	}
	return id, nil
}
