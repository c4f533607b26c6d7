package userinfo

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"

	"github.com/entrakit/go-entra-middleware/apptoken"
)

// Option is how options for the Client are set up.
type Option func(*Client) error

// New creates a Client for cfg. Requests carry a bearer token from tokens,
// normally the shared *apptoken.Cache. A zero Timeout means DefaultTimeout
// and a nil Mapping means DefaultMapping.
func New(cfg Config, tokens apptoken.TokenSource, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("token source cannot be nil")
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid user info URL: %w", err)
	}
	if cfg.Timeout < 0 {
		return nil, errors.New("timeout cannot be negative")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	mapping := DefaultMapping()
	if cfg.Mapping != nil {
		mapping = maps.Clone(cfg.Mapping)
	}

	transport := &apptoken.Transport{Source: tokens}
	c := &Client{
		baseURL:   trimBaseURL(cfg.URL),
		mapping:   mapping,
		transport: transport,
		client:    &http.Client{Timeout: timeout, Transport: transport},
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// WithTransport sets the round tripper under the token transport.
func WithTransport(base http.RoundTripper) Option {
	return func(c *Client) error {
		if base == nil {
			return errors.New("transport cannot be nil")
		}
		c.transport.Base = base
		return nil
	}
}

// WithLogger sets an optional logger for the Client.
func WithLogger(logger Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}
