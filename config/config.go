// Package config loads the settings of an Entra ID protected service from an
// optional YAML file and ENTRA_ prefixed environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/entrakit/go-entra-middleware/apptoken"
	"github.com/entrakit/go-entra-middleware/core"
	"github.com/entrakit/go-entra-middleware/identity"
	"github.com/entrakit/go-entra-middleware/jwks"
	"github.com/entrakit/go-entra-middleware/userinfo"
	"github.com/entrakit/go-entra-middleware/validator"
)

// EnvPrefix prefixes every environment override, e.g. ENTRA_AUTH_CLIENT_ID.
const EnvPrefix = "ENTRA"

// DefaultProviderURL is the Entra ID authority.
const DefaultProviderURL = "https://login.microsoftonline.com"

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Auth     AuthConfig     `mapstructure:"auth"`
	AppToken AppTokenConfig `mapstructure:"app_token"`
	UserInfo userinfo.Config `mapstructure:"user_info"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

// AuthConfig configures inbound token verification.
type AuthConfig struct {
	ProviderURL string `mapstructure:"provider_url"`
	TenantID    string `mapstructure:"tenant_id"`
	ClientID    string `mapstructure:"client_id"`

	// Issuer defaults to {provider_url}/{tenant_id}/v2.0.
	Issuer string `mapstructure:"issuer"`

	// JWKSURL is resolved through OIDC discovery when empty. See ResolveJWKSURL.
	JWKSURL string `mapstructure:"jwks_url"`

	Algorithms      []string `mapstructure:"algorithms"`
	VerifySignature bool     `mapstructure:"verify_signature"`
	RequiredClaims  []string `mapstructure:"required_claims"`

	RoleClaim       string `mapstructure:"role_claim"`
	RoleApplication string `mapstructure:"role_application"`

	// Client-credentials tokens carry no user; they get AppUsername and
	// the single role AppRole.
	AllowAppTokens bool   `mapstructure:"allow_app_tokens"`
	AppUsername    string `mapstructure:"app_username"`
	AppRole        string `mapstructure:"app_role"`

	KeyCacheTTL time.Duration `mapstructure:"key_cache_ttl"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	ClockSkew   time.Duration `mapstructure:"clock_skew"`
}

// AppTokenConfig configures the client-credentials token cache.
type AppTokenConfig struct {
	apptoken.Config `mapstructure:",squash"`

	ExpiryPadding time.Duration `mapstructure:"expiry_padding"`
}

type CacheConfig struct {
	Backend   string `mapstructure:"backend"`
	RedisURL  string `mapstructure:"redis_url"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ProtectedRoutes []string      `mapstructure:"protected_routes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Defaults returns every recognized key with its default value. Keys without
// a default are listed with their zero value so environment overrides reach
// them.
func Defaults() map[string]any {
	return map[string]any{
		"auth.provider_url":     DefaultProviderURL,
		"auth.tenant_id":        "",
		"auth.client_id":        "",
		"auth.issuer":           "",
		"auth.jwks_url":         "",
		"auth.algorithms":       []string{"RS256"},
		"auth.verify_signature": true,
		"auth.required_claims":  []string{"preferred_username"},
		"auth.role_claim":       "roles",
		"auth.role_application": "",
		"auth.allow_app_tokens": true,
		"auth.app_username":     identity.DefaultAppUsername,
		"auth.app_role":         identity.DefaultAppRole,
		"auth.key_cache_ttl":    time.Hour,
		"auth.http_timeout":     10 * time.Second,
		"auth.clock_skew":       time.Duration(0),

		"app_token.provider_url":   DefaultProviderURL,
		"app_token.tenant_id":      "",
		"app_token.grant_type":     apptoken.DefaultGrantType,
		"app_token.client_id":      "",
		"app_token.client_secret":  "",
		"app_token.scope":          "",
		"app_token.expiry_padding": time.Duration(0),

		"user_info.url":     "",
		"user_info.timeout": userinfo.DefaultTimeout,
		"user_info.mapping": userinfo.DefaultMapping(),

		"cache.backend":    BackendMemory,
		"cache.redis_url":  "",
		"cache.key_prefix": "entra:",

		"server.addr":             ":8080",
		"server.protected_routes": []string{"/me"},
		"server.shutdown_timeout": 10 * time.Second,

		"log.level":  "info",
		"log.format": "json",
	}
}

// Load reads path (skipped when empty) and applies environment overrides on
// top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.derive()
	return &cfg, nil
}

func (c *Config) derive() {
	if c.Auth.Issuer == "" && c.Auth.TenantID != "" {
		c.Auth.Issuer = jwks.TenantIssuerURL(c.Auth.ProviderURL, c.Auth.TenantID)
	}
	if c.AppToken.TenantID == "" {
		c.AppToken.TenantID = c.Auth.TenantID
	}
}

// Validate checks the settings needed to verify inbound tokens and to build
// the cache and logger. App token settings are checked by the token cache on
// first use, unless user_info.url is set: lookups depend on them, so they
// are checked here too.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Auth.ClientID) == "" {
		missing = append(missing, "auth.client_id")
	}
	if strings.TrimSpace(c.Auth.Issuer) == "" {
		missing = append(missing, "auth.tenant_id")
	}
	if c.Cache.Backend == BackendRedis && c.Cache.RedisURL == "" {
		missing = append(missing, "cache.redis_url")
	}
	if strings.TrimSpace(c.UserInfo.URL) != "" {
		var appErr *core.ConfigurationError
		if errors.As(c.AppToken.Config.Validate(), &appErr) {
			for _, name := range appErr.Missing {
				missing = append(missing, "app_token."+name)
			}
		}
	}
	if len(missing) > 0 {
		return &core.ConfigurationError{Component: "config", Missing: missing}
	}

	var errs []error
	if c.UserInfo.Timeout < 0 {
		errs = append(errs, errors.New("user_info.timeout: cannot be negative"))
	}
	if _, err := validator.ParseAlgorithms(c.Auth.Algorithms); err != nil {
		errs = append(errs, fmt.Errorf("auth.algorithms: %w", err))
	}
	if c.Cache.Backend != BackendMemory && c.Cache.Backend != BackendRedis {
		errs = append(errs, fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend))
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ResolveJWKSURL returns the configured JWKS URL or, when it is empty, the
// jwks_uri published by the issuer's discovery document. If discovery fails
// the tenant's well-known key endpoint is used.
func (a *AuthConfig) ResolveJWKSURL(ctx context.Context, client *http.Client, logger logrus.FieldLogger) string {
	if a.JWKSURL != "" {
		return a.JWKSURL
	}

	endpoints, err := jwks.Discover(ctx, client, a.Issuer)
	if err == nil && endpoints.JWKSURL != "" {
		a.JWKSURL = endpoints.JWKSURL
		return a.JWKSURL
	}

	a.JWKSURL = jwks.TenantJWKSURL(a.ProviderURL, a.TenantID)
	if logger != nil {
		logger.WithError(err).WithField("jwks_url", a.JWKSURL).
			Warn("OIDC discovery failed, using the tenant key endpoint")
	}
	return a.JWKSURL
}

// NewLogger builds a logrus logger from the log section.
func (l LogConfig) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetLevel(level)
	switch l.Format {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger, nil
}
