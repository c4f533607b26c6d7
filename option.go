package jwtmiddleware

import (
	"errors"
	"net/http"

	"github.com/entrakit/go-entra-middleware/core"
)

// Option configures the Gate.
// Returns error for validation failures.
type Option func(*Gate) error

// WithVerifier sets the token verifier (REQUIRED). *validator.Validator
// satisfies core.Verifier.
func WithVerifier(v core.Verifier) Option {
	return func(g *Gate) error {
		if v == nil {
			return ErrVerifierNil
		}
		g.verifier = v
		return nil
	}
}

// WithExtractor sets how verified claims become an identity.
//
// Default: identity.NewExtractor()
func WithExtractor(e core.ClaimsExtractor) Option {
	return func(g *Gate) error {
		if e == nil {
			return ErrExtractorNil
		}
		g.extractor = e
		return nil
	}
}

// WithEnricher adds profile attributes to each authenticated user, for
// example from a *userinfo.Client. Failures are logged and the request
// proceeds.
//
// Default: no enrichment
func WithEnricher(e core.Enricher) Option {
	return func(g *Gate) error {
		if e == nil {
			return ErrEnricherNil
		}
		g.enricher = e
		return nil
	}
}

// WithRoutes sets the table of protected routes used by CheckJWT.
//
// Default: an empty table, nothing is protected.
func WithRoutes(routes *RouteTable) Option {
	return func(g *Gate) error {
		if routes == nil {
			return ErrRoutesNil
		}
		g.routes = routes
		return nil
	}
}

// WithServeMux resolves each request to the pattern mux would dispatch it
// to, so the route table can hold ServeMux patterns such as "GET /me".
func WithServeMux(mux *http.ServeMux) Option {
	return func(g *Gate) error {
		if mux == nil {
			return ErrServeMuxNil
		}
		g.resolve = ServeMuxResolver(mux)
		return nil
	}
}

// WithRouteResolver sets a custom route resolver.
//
// Default: PathResolver
func WithRouteResolver(resolve RouteResolver) Option {
	return func(g *Gate) error {
		if resolve == nil {
			return ErrRouteResolverNil
		}
		g.resolve = resolve
		return nil
	}
}

// WithValidateOnOptions sets whether OPTIONS requests to protected routes
// must be authenticated.
//
// Default: true
func WithValidateOnOptions(value bool) Option {
	return func(g *Gate) error {
		g.validateOnOptions = value
		return nil
	}
}

// WithErrorHandler sets the handler called when authentication fails.
//
// Default: DefaultErrorHandler
func WithErrorHandler(h ErrorHandler) Option {
	return func(g *Gate) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		g.errorHandler = h
		return nil
	}
}

// WithTokenExtractor sets the function to extract the token from the request.
//
// Default: AuthHeaderTokenExtractor
func WithTokenExtractor(e TokenExtractor) Option {
	return func(g *Gate) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		g.tokenExtractor = e
		return nil
	}
}

// WithLogger sets an optional logger for the gate and its core.
func WithLogger(logger Logger) Option {
	return func(g *Gate) error {
		if logger == nil {
			return ErrLoggerNil
		}
		g.logger = logger
		return nil
	}
}

// WithMetrics sets where request outcomes and verification latency are
// recorded.
//
// Default: NoopMetrics
func WithMetrics(m Metrics) Option {
	return func(g *Gate) error {
		if m == nil {
			return ErrMetricsNil
		}
		g.metrics = m
		return nil
	}
}

// WithTracer sets the tracer used for the verification span.
//
// Default: OpenTelemetry with the global TracerProvider
func WithTracer(t Tracer) Option {
	return func(g *Gate) error {
		if t == nil {
			return ErrTracerNil
		}
		g.tracer = t
		return nil
	}
}

// Sentinel errors for configuration validation
var (
	ErrVerifierNil       = errors.New("verifier cannot be nil (use WithVerifier)")
	ErrExtractorNil      = errors.New("extractor cannot be nil")
	ErrEnricherNil       = errors.New("enricher cannot be nil")
	ErrRoutesNil         = errors.New("route table cannot be nil")
	ErrServeMuxNil       = errors.New("serve mux cannot be nil")
	ErrRouteResolverNil  = errors.New("route resolver cannot be nil")
	ErrErrorHandlerNil   = errors.New("errorHandler cannot be nil")
	ErrTokenExtractorNil = errors.New("tokenExtractor cannot be nil")
	ErrLoggerNil         = errors.New("logger cannot be nil")
	ErrMetricsNil        = errors.New("metrics cannot be nil")
	ErrTracerNil         = errors.New("tracer cannot be nil")
)
