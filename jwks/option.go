package jwks

import (
	"errors"
	"net/http"
	"time"

	"github.com/entrakit/go-entra-middleware/cache"
)

// Option is how options for the KeyCache are set up.
type Option func(*KeyCache) error

// NewKeyCache builds a KeyCache.
//
// Defaults: an in-memory store, a 1 hour TTL and an HTTP client with a 10
// second timeout.
//
// Example:
//
//	keys, err := jwks.NewKeyCache(
//	    jwks.WithStore(cache.NewRedisStore(rdb, "")),
//	    jwks.WithCacheTTL(30*time.Minute),
//	)
func NewKeyCache(opts ...Option) (*KeyCache, error) {
	c := &KeyCache{
		client: &http.Client{Timeout: defaultHTTPTimeout},
		ttl:    defaultCacheTTL,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.store == nil {
		c.store = cache.NewMemoryStore()
	}
	return c, nil
}

// WithStore sets the backing store. Sharing one store between processes
// (e.g. cache.RedisStore) shares resolved keys too.
func WithStore(s cache.Store) Option {
	return func(c *KeyCache) error {
		if s == nil {
			return errors.New("store cannot be nil")
		}
		c.store = s
		return nil
	}
}

// WithHTTPClient sets the client used to fetch JWKS documents. It should
// carry a timeout; the fetch runs inside the request path.
func WithHTTPClient(client *http.Client) Option {
	return func(c *KeyCache) error {
		if client == nil {
			return errors.New("HTTP client cannot be nil")
		}
		c.client = client
		return nil
	}
}

// WithCacheTTL sets how long a resolved key is served from cache.
// A zero TTL keeps the default of 1 hour.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *KeyCache) error {
		if ttl < 0 {
			return errors.New("cache TTL cannot be negative")
		}
		if ttl > 0 {
			c.ttl = ttl
		}
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger Logger) Option {
	return func(c *KeyCache) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}
