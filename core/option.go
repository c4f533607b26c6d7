package core

import (
	"errors"

	"github.com/entrakit/go-entra-middleware/identity"
)

// Option is a function that configures the Core.
// Options return errors to enable validation during construction.
type Option func(*Core) error

// New creates a new Core instance with the provided options.
//
// WithVerifier is required. When no extractor is given, an
// identity.Extractor with default settings is used.
//
// Example:
//
//	c, err := core.New(
//	    core.WithVerifier(v),
//	    core.WithExtractor(identity.NewExtractor(identity.WithRoleFilter(filter))),
//	    core.WithLogger(logger),
//	)
func New(opts ...Option) (*Core, error) {
	c := &Core{}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.verifier == nil {
		return nil, &ConfigurationError{Component: "core", Missing: []string{"verifier"}}
	}
	if c.extractor == nil {
		c.extractor = identity.NewExtractor()
	}

	return c, nil
}

// WithVerifier sets the token verifier. This is a required option.
func WithVerifier(v Verifier) Option {
	return func(c *Core) error {
		if v == nil {
			return errors.New("verifier cannot be nil")
		}
		c.verifier = v
		return nil
	}
}

// WithExtractor sets the claims extractor.
func WithExtractor(e ClaimsExtractor) Option {
	return func(c *Core) error {
		if e == nil {
			return errors.New("extractor cannot be nil")
		}
		c.extractor = e
		return nil
	}
}

// WithEnricher sets an optional Enricher run on every authenticated user.
func WithEnricher(e Enricher) Option {
	return func(c *Core) error {
		if e == nil {
			return errors.New("enricher cannot be nil")
		}
		c.enricher = e
		return nil
	}
}

// WithLogger sets an optional logger for the Core.
func WithLogger(logger Logger) Option {
	return func(c *Core) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}
