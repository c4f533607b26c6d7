package apptoken

import (
	"errors"
	"net/http"
	"time"

	"github.com/entrakit/go-entra-middleware/cache"
)

// Option is how options for the Cache are set up.
type Option func(*Cache) error

// New creates a Cache for cfg. The configuration itself is checked by
// GetToken, so a misconfigured Cache fails on first use without touching the
// network. Call cfg.Validate to fail earlier.
func New(cfg Config, opts ...Option) (*Cache, error) {
	c := &Cache{
		cfg:    cfg,
		store:  cache.NewMemoryStore(),
		client: &http.Client{Timeout: defaultHTTPTimeout},
		now:    time.Now,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// WithStore sets where the token is kept. Use a shared store such as
// cache.RedisStore to share one token between processes.
func WithStore(store cache.Store) Option {
	return func(c *Cache) error {
		if store == nil {
			return errors.New("store cannot be nil")
		}
		c.store = store
		return nil
	}
}

// WithHTTPClient sets the client used to call the token endpoint.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) error {
		if client == nil {
			return errors.New("HTTP client cannot be nil")
		}
		c.client = client
		return nil
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		c.now = now
		return nil
	}
}

// WithExpiryPadding treats tokens as expired padding before their real
// expiry. The default is 0.
func WithExpiryPadding(padding time.Duration) Option {
	return func(c *Cache) error {
		if padding < 0 {
			return errors.New("expiry padding cannot be negative")
		}
		c.padding = padding
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger Logger) Option {
	return func(c *Cache) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}
