package jwtmiddleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/entrakit/go-entra-middleware/core"
	"github.com/entrakit/go-entra-middleware/identity"
)

// Gate is the request gate. It lets requests to unprotected routes through
// untouched and requires a valid Entra ID bearer token on protected ones.
type Gate struct {
	core              *core.Core
	routes            *RouteTable
	resolve           RouteResolver
	errorHandler      ErrorHandler
	tokenExtractor    TokenExtractor
	validateOnOptions bool
	logger            Logger
	metrics           Metrics
	tracer            Tracer

	// Temporary fields used during construction
	verifier  core.Verifier
	extractor core.ClaimsExtractor
	enricher  core.Enricher
}

// New constructs a new Gate with the supplied options.
// All parameters are passed via options (pure options pattern).
//
// Example:
//
//	gate, err := jwtmiddleware.New(
//	    jwtmiddleware.WithVerifier(v),
//	    jwtmiddleware.WithRoutes(jwtmiddleware.NewRouteTable("GET /me")),
//	    jwtmiddleware.WithServeMux(mux),
//	)
//	if err != nil {
//	    log.Fatalf("failed to create gate: %v", err)
//	}
//	http.ListenAndServe(":8080", gate.CheckJWT(mux))
func New(opts ...Option) (*Gate, error) {
	g := &Gate{
		validateOnOptions: true, // Validate OPTIONS by default
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if g.verifier == nil {
		return nil, fmt.Errorf("invalid gate configuration: %w",
			&core.ConfigurationError{Component: "gate", Missing: []string{"verifier"}})
	}

	g.applyDefaults()

	if err := g.createCore(); err != nil {
		return nil, fmt.Errorf("failed to create core: %w", err)
	}

	return g, nil
}

// createCore creates the core.Core instance with the configured options
func (g *Gate) createCore() error {
	coreOpts := []core.Option{core.WithVerifier(g.verifier)}
	if g.extractor != nil {
		coreOpts = append(coreOpts, core.WithExtractor(g.extractor))
	}
	if g.enricher != nil {
		coreOpts = append(coreOpts, core.WithEnricher(g.enricher))
	}
	if g.logger != nil {
		coreOpts = append(coreOpts, core.WithLogger(g.logger))
	}

	c, err := core.New(coreOpts...)
	if err != nil {
		return err
	}
	g.core = c
	return nil
}

// applyDefaults sets default values for optional fields
func (g *Gate) applyDefaults() {
	if g.routes == nil {
		g.routes = NewRouteTable()
	}
	if g.resolve == nil {
		g.resolve = PathResolver
	}
	if g.errorHandler == nil {
		g.errorHandler = DefaultErrorHandler
	}
	if g.tokenExtractor == nil {
		g.tokenExtractor = AuthHeaderTokenExtractor
	}
	if g.metrics == nil {
		g.metrics = &NoopMetrics{}
	}
	if g.tracer == nil {
		g.tracer = NewOpenTelemetryTracer(nil)
	}
}

// GetIdentity retrieves the authenticated identity from the context.
//
// Example:
//
//	id, err := jwtmiddleware.GetIdentity(r.Context())
//	if err != nil {
//	    http.Error(w, "not authenticated", http.StatusUnauthorized)
//	    return
//	}
//	fmt.Println(id.Username, id.Roles)
func GetIdentity(ctx context.Context) (*identity.Identity, error) {
	return core.GetIdentity(ctx)
}

// GetClaims returns the verified claims of the authenticated caller.
func GetClaims(ctx context.Context) (map[string]any, error) {
	return core.GetClaims(ctx)
}

// Routes returns the gate's route table.
func (g *Gate) Routes() *RouteTable {
	return g.routes
}

// RequiresAuth reports whether a request dispatched to pattern must carry a
// valid token.
func (g *Gate) RequiresAuth(r *http.Request, pattern string) bool {
	if !g.validateOnOptions && r.Method == http.MethodOptions {
		return false
	}
	return g.routes.RequiresAuth(pattern)
}

// CheckJWT authenticates requests whose route is in the route table and
// passes every other request to next without looking at its headers.
func (g *Gate) CheckJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pattern := g.resolve(r)
		if !g.RequiresAuth(r, pattern) {
			if g.logger != nil {
				g.logger.Debug("route does not require authentication",
					"method", r.Method,
					"pattern", pattern)
			}
			g.metrics.IncCounter(MetricRequests, map[string]string{"outcome": OutcomeUnprotected})
			next.ServeHTTP(w, r)
			return
		}
		g.serveProtected(w, r, next)
	})
}

// Protect requires authentication for every request to next, regardless of
// the route table.
func (g *Gate) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.validateOnOptions && r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		g.serveProtected(w, r, next)
	})
}

func (g *Gate) serveProtected(w http.ResponseWriter, r *http.Request, next http.Handler) {
	id, err := g.Authenticate(r)
	if err != nil {
		g.errorHandler(w, r, err)
		return
	}
	next.ServeHTTP(w, r.WithContext(core.SetIdentity(r.Context(), id)))
}

// Authenticate extracts the bearer token from r and verifies it. A header
// that is present but not "Bearer <token>" counts as a missing token.
func (g *Gate) Authenticate(r *http.Request) (*identity.Identity, error) {
	token, err := g.tokenExtractor(r)
	if err != nil {
		if g.logger != nil {
			g.logger.Warn("failed to extract token from request",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path)
		}
		return g.authenticate(r.Context(), "", &core.MissingTokenError{Reason: "formato do cabeçalho Authorization inválido"})
	}
	return g.authenticate(r.Context(), token, nil)
}

// AuthenticateToken verifies a raw token. Transports without an
// *http.Request, such as gRPC, use it directly.
func (g *Gate) AuthenticateToken(ctx context.Context, token string) (*identity.Identity, error) {
	return g.authenticate(ctx, token, nil)
}

// HandleError writes err with the configured ErrorHandler.
func (g *Gate) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	g.errorHandler(w, r, err)
}

func (g *Gate) authenticate(ctx context.Context, token string, extractErr error) (*identity.Identity, error) {
	ctx, span := g.tracer.StartSpan(ctx, SpanVerify)
	defer span.Finish()

	var (
		id  *identity.Identity
		err = extractErr
	)
	if err == nil {
		start := time.Now()
		id, err = g.core.Authenticate(ctx, token)
		if token != "" {
			g.metrics.ObserveHistogram(MetricVerification, time.Since(start).Seconds(), map[string]string{})
		}
	}

	outcome := outcomeOf(err)
	g.metrics.IncCounter(MetricRequests, map[string]string{"outcome": outcome})
	span.SetTag("auth.outcome", outcome)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.SetTag("auth.username", id.Username)
	return id, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeAuthenticated
	case errors.Is(err, core.ErrMissingToken):
		return OutcomeMissingToken
	default:
		return OutcomeInvalidToken
	}
}
