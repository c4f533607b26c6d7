package validator

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"

	"github.com/entrakit/go-entra-middleware/core"
	"github.com/entrakit/go-entra-middleware/identity"
)

// Option is how options for the Validator are set up.
// Options return errors to enable validation during construction.
type Option func(*Validator) error

// New sets up a Validator.
//
// WithIssuer and WithAudience are always required. WithKeyResolver is
// required unless signature verification is disabled. A missing requirement
// is reported as a *core.ConfigurationError listing every missing setting.
func New(opts ...Option) (*Validator, error) {
	v := &Validator{
		algorithms:      []jwa.SignatureAlgorithm{jwa.RS256},
		verifySignature: true,
		requiredClaims:  []string{identity.PreferredUsernameClaim},
		appTokens:       true,
		now:             time.Now,
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}

	var missing []string
	if v.issuer == "" {
		missing = append(missing, "issuer")
	}
	if len(v.audiences) == 0 {
		missing = append(missing, "audience")
	}
	if v.verifySignature {
		if v.keys == nil {
			missing = append(missing, "key resolver")
		}
		if v.jwksURL == "" {
			missing = append(missing, "jwks url")
		}
	}
	if len(missing) > 0 {
		return nil, &core.ConfigurationError{Component: "validator", Missing: missing}
	}

	return v, nil
}

// WithKeyResolver sets where signing keys come from and the JWKS endpoint
// they are resolved against.
func WithKeyResolver(keys KeyResolver, jwksURL string) Option {
	return func(v *Validator) error {
		if keys == nil {
			return errors.New("key resolver cannot be nil")
		}
		if _, err := url.ParseRequestURI(jwksURL); err != nil {
			return fmt.Errorf("invalid JWKS URL: %w", err)
		}
		v.keys = keys
		v.jwksURL = jwksURL
		return nil
	}
}

// WithAlgorithms replaces the allowed signing algorithms. The default is
// RS256 only.
func WithAlgorithms(algorithms ...jwa.SignatureAlgorithm) Option {
	return func(v *Validator) error {
		if len(algorithms) == 0 {
			return errors.New("at least one algorithm is required")
		}
		for _, alg := range algorithms {
			if !allowedSigningAlgorithms[alg] {
				return fmt.Errorf("unsupported signature algorithm: %s", alg)
			}
		}
		v.algorithms = algorithms
		return nil
	}
}

// WithIssuer sets the expected issuer claim (iss).
func WithIssuer(issuerURL string) Option {
	return func(v *Validator) error {
		if issuerURL == "" {
			return errors.New("issuer cannot be empty")
		}
		if _, err := url.Parse(issuerURL); err != nil {
			return fmt.Errorf("invalid issuer URL: %w", err)
		}
		v.issuer = issuerURL
		return nil
	}
}

// WithAudience accepts tokens issued for clientID, either as the bare client
// id or as its api:// Application ID URI.
func WithAudience(clientID string) Option {
	return func(v *Validator) error {
		if clientID == "" || clientID == AppIDURIScheme {
			return errors.New("audience cannot be empty")
		}
		v.audiences = append(v.audiences, audiencesFor(clientID)...)
		return nil
	}
}

// WithSignatureVerification turns signature checks on or off. Claims are
// still validated when it is off. Only disable it for local development.
func WithSignatureVerification(enabled bool) Option {
	return func(v *Validator) error {
		v.verifySignature = enabled
		return nil
	}
}

// WithRequiredClaims replaces the claims that must be present and non-empty.
// The default is preferred_username. Passing no names disables the check.
func WithRequiredClaims(names ...string) Option {
	return func(v *Validator) error {
		for i, name := range names {
			if name == "" {
				return fmt.Errorf("required claim at index %d cannot be empty", i)
			}
		}
		v.requiredClaims = names
		return nil
	}
}

// WithClientCredentialsTokens controls whether application tokens, which
// carry neither upn nor preferred_username, are accepted. They are by
// default, and user claims in the required list are not asked of them.
func WithClientCredentialsTokens(allowed bool) Option {
	return func(v *Validator) error {
		v.appTokens = allowed
		return nil
	}
}

// WithAllowedClockSkew sets the tolerance applied to exp and nbf.
func WithAllowedClockSkew(skew time.Duration) Option {
	return func(v *Validator) error {
		if skew < 0 {
			return errors.New("clock skew cannot be negative")
		}
		v.allowedClockSkew = skew
		return nil
	}
}
