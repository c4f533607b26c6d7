package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	jwtmiddleware "github.com/entrakit/go-entra-middleware"
	"github.com/entrakit/go-entra-middleware/apptoken"
	"github.com/entrakit/go-entra-middleware/cache"
	"github.com/entrakit/go-entra-middleware/config"
	jwtgin "github.com/entrakit/go-entra-middleware/framework/gin"
	"github.com/entrakit/go-entra-middleware/identity"
	"github.com/entrakit/go-entra-middleware/jwks"
	"github.com/entrakit/go-entra-middleware/userinfo"
	"github.com/entrakit/go-entra-middleware/validator"
)

// newStore returns the store shared by the key cache and the app token cache.
func newStore(cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		return cache.NewRedisStoreFromURL(cfg.RedisURL, cfg.KeyPrefix)
	case config.BackendMemory, "":
		return cache.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// newGate wires key cache, validator, claims extractor, optional user-info
// enrichment and observability into a gate protecting
// cfg.Server.ProtectedRoutes.
func newGate(
	ctx context.Context,
	cfg *config.Config,
	store cache.Store,
	logger logrus.FieldLogger,
	registerer prometheus.Registerer,
) (*jwtmiddleware.Gate, error) {
	log := jwtmiddleware.NewLogrusLogger(logger)
	client := &http.Client{Timeout: cfg.Auth.HTTPTimeout}

	keys, err := jwks.NewKeyCache(
		jwks.WithStore(store),
		jwks.WithHTTPClient(client),
		jwks.WithCacheTTL(cfg.Auth.KeyCacheTTL),
		jwks.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("key cache: %w", err)
	}

	algorithms, err := validator.ParseAlgorithms(cfg.Auth.Algorithms)
	if err != nil {
		return nil, err
	}

	opts := []validator.Option{
		validator.WithIssuer(cfg.Auth.Issuer),
		validator.WithAudience(cfg.Auth.ClientID),
		validator.WithAlgorithms(algorithms...),
		validator.WithSignatureVerification(cfg.Auth.VerifySignature),
		validator.WithAllowedClockSkew(cfg.Auth.ClockSkew),
		validator.WithClientCredentialsTokens(cfg.Auth.AllowAppTokens),
	}
	if len(cfg.Auth.RequiredClaims) > 0 {
		opts = append(opts, validator.WithRequiredClaims(cfg.Auth.RequiredClaims...))
	}
	if cfg.Auth.VerifySignature {
		opts = append(opts, validator.WithKeyResolver(keys, cfg.Auth.ResolveJWKSURL(ctx, client, logger)))
	} else {
		logger.Warn("signature verification is disabled, tokens are trusted as presented")
	}

	v, err := validator.New(opts...)
	if err != nil {
		return nil, err
	}

	gateOpts := []jwtmiddleware.Option{
		jwtmiddleware.WithVerifier(v),
		jwtmiddleware.WithExtractor(identity.NewExtractor(
			identity.WithRolesClaim(cfg.Auth.RoleClaim),
			identity.WithRoleFilter(identity.ForApplication(cfg.Auth.RoleApplication)),
			identity.WithAppDefaults(cfg.Auth.AppUsername, cfg.Auth.AppRole),
		)),
		jwtmiddleware.WithRoutes(jwtmiddleware.NewRouteTable(cfg.Server.ProtectedRoutes...)),
		jwtmiddleware.WithLogger(log),
		jwtmiddleware.WithMetrics(jwtmiddleware.NewPrometheusMetrics(registerer)),
		jwtmiddleware.WithTracer(jwtmiddleware.NewOpenTelemetryTracer(nil)),
	}

	if cfg.UserInfo.URL != "" {
		tokens, err := newTokenCache(cfg.AppToken, store, logger)
		if err != nil {
			return nil, fmt.Errorf("app token cache: %w", err)
		}
		users, err := userinfo.New(cfg.UserInfo, tokens, userinfo.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("user info: %w", err)
		}
		gateOpts = append(gateOpts, jwtmiddleware.WithEnricher(users))
	}

	return jwtmiddleware.New(gateOpts...)
}

func newTokenCache(cfg config.AppTokenConfig, store cache.Store, logger logrus.FieldLogger) (*apptoken.Cache, error) {
	return apptoken.New(cfg.Config,
		apptoken.WithStore(store),
		apptoken.WithExpiryPadding(cfg.ExpiryPadding),
		apptoken.WithLogger(jwtmiddleware.NewLogrusLogger(logger)),
	)
}

// newRouter serves /healthz and /metrics openly and /me behind the gate.
func newRouter(gate *jwtmiddleware.Gate, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(jwtgin.New(gate))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.GET("/me", func(c *gin.Context) {
		id, err := jwtgin.GetIdentity(c)
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, id)
	})
	return router
}
