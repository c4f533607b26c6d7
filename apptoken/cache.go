// Package apptoken acquires and caches the application's own access token
// through the OAuth 2.0 client credentials flow.
//
// A Cache is built once at startup and shared. GetToken returns the cached
// token while it is valid and otherwise requests a new one from the tenant's
// token endpoint. Concurrent refreshes are collapsed into one request.
package apptoken

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"github.com/entrakit/go-entra-middleware/cache"
	"github.com/entrakit/go-entra-middleware/core"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	cacheKeyPrefix     = "apptoken:"
)

// Logger defines an optional logging interface for the token cache.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Cache holds the current application token.
type Cache struct {
	cfg     Config
	store   cache.Store
	client  *http.Client
	now     func() time.Time
	padding time.Duration
	logger  Logger

	refresh singleflight.Group
}

type cachedToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// GetToken returns a valid application access token.
//
// A cached token is returned without any network call while
// now < expires_at - padding. Otherwise one POST is sent to the token
// endpoint; concurrent callers share its result. The request is not tied to
// the caller that started it: a caller whose ctx ends stops waiting and gets
// ctx.Err(), while the request continues for the others, bounded by the HTTP
// client timeout. On failure a
// *core.TokenAcquisitionError is returned and the cache is left as it was.
// Missing configuration is reported before any network call.
func (c *Cache) GetToken(ctx context.Context) (string, error) {
	if err := c.cfg.Validate(); err != nil {
		return "", err
	}

	if token, ok := c.cached(ctx); ok {
		return token, nil
	}

	ch := c.refresh.DoChan(c.cacheKey(), func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		// Another caller may have refreshed while we waited.
		if token, ok := c.cached(ctx); ok {
			return token, nil
		}
		return c.fetch(ctx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Reset drops the cached token so the next GetToken fetches a new one.
func (c *Cache) Reset(ctx context.Context) error {
	return c.store.Delete(ctx, c.cacheKey())
}

func (c *Cache) cacheKey() string {
	return cacheKeyPrefix + c.cfg.ClientID + "|" + c.cfg.Scope
}

func (c *Cache) cached(ctx context.Context) (string, bool) {
	raw, ok, err := c.store.Get(ctx, c.cacheKey())
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("app token cache read failed", "error", err)
		}
		return "", false
	}
	if !ok {
		return "", false
	}

	var entry cachedToken
	if err := json.Unmarshal(raw, &entry); err != nil {
		return "", false
	}
	if entry.AccessToken == "" || !c.now().Before(entry.ExpiresAt.Add(-c.padding)) {
		return "", false
	}
	return entry.AccessToken, true
}

func (c *Cache) fetch(ctx context.Context) (string, error) {
	cc := clientcredentials.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		TokenURL:     c.cfg.TokenURL(),
		Scopes:       strings.Fields(c.cfg.Scope),
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if c.cfg.GrantType != DefaultGrantType {
		cc.EndpointParams = url.Values{"grant_type": {c.cfg.GrantType}}
	}

	if c.logger != nil {
		c.logger.Debug("requesting app token", "token_url", cc.TokenURL, "client_id", c.cfg.ClientID)
	}

	tok, err := cc.Token(context.WithValue(ctx, oauth2.HTTPClient, c.client))
	if err != nil {
		acqErr := &core.TokenAcquisitionError{Err: err}
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			acqErr.StatusCode = retrieveErr.Response.StatusCode
		}
		if c.logger != nil {
			c.logger.Error("app token request failed", "error", acqErr)
		}
		return "", acqErr
	}
	if tok.Expiry.IsZero() {
		return "", &core.TokenAcquisitionError{Err: errors.New("token response has no expires_in")}
	}

	lifetime := time.Until(tok.Expiry).Round(time.Second)
	entry := cachedToken{AccessToken: tok.AccessToken, ExpiresAt: c.now().Add(lifetime)}
	c.save(ctx, entry, lifetime)

	if c.logger != nil {
		c.logger.Info("app token acquired", "expires_at", entry.ExpiresAt)
	}
	return entry.AccessToken, nil
}

// save is best effort: a failed write only costs another fetch.
func (c *Cache) save(ctx context.Context, entry cachedToken, ttl time.Duration) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, c.cacheKey(), raw, ttl); err != nil && c.logger != nil {
		c.logger.Warn("app token cache write failed", "error", fmt.Errorf("set %s: %w", c.cacheKey(), err))
	}
}
