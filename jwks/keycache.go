package jwks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"

	"github.com/entrakit/go-entra-middleware/cache"
	"github.com/entrakit/go-entra-middleware/core"
)

// FingerprintLength is the number of leading token characters mixed into the
// cache key.
const FingerprintLength = 10

const (
	defaultCacheTTL    = time.Hour
	defaultHTTPTimeout = 10 * time.Second
	maxJWKSBodySize    = 1 << 20
	cacheKeyPrefix     = "jwks:"
)

// Logger defines an optional logging interface for the key cache.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// KeyCache resolves token signing keys from JWKS endpoints and caches them in
// a cache.Store.
//
// Entries are keyed by (JWKS URL, first FingerprintLength characters of the
// token). The fingerprint is not a security boundary: tokens sharing a prefix
// share an entry. Each entry remembers the key id it was resolved for, and a
// hit whose key id differs from the token's is treated as a miss, so a key
// rotation overwrites the entry instead of failing every request until the
// TTL runs out.
//
// Concurrent misses for the same entry are not coalesced; each one fetches
// and the last write wins.
type KeyCache struct {
	store  cache.Store
	client *http.Client
	ttl    time.Duration
	logger Logger
}

type cachedKey struct {
	KeyID    string          `json:"kid"`
	Key      json.RawMessage `json:"jwk"`
	CachedAt time.Time       `json:"cached_at"`
}

// GetKey returns the public key that signed token, as published by the JWKS
// endpoint at jwksURL.
//
// On a hit no network call is made. On a miss exactly one request is sent to
// jwksURL and the resolved key is stored for the configured TTL. Failures are
// returned as *core.KeyResolutionError and leave the cache untouched.
func (c *KeyCache) GetKey(ctx context.Context, jwksURL, token string) (jwk.Key, error) {
	kid, err := keyIDOf(token)
	if err != nil {
		return nil, &core.KeyResolutionError{JWKSURL: jwksURL, Err: err}
	}

	cacheKey := CacheKey(jwksURL, token)
	if key, ok := c.lookup(ctx, cacheKey, kid); ok {
		return key, nil
	}

	if c.logger != nil {
		c.logger.Debug("signing key cache miss, fetching JWKS",
			"jwks_url", jwksURL,
			"kid", kid,
			"fingerprint", fingerprint(token))
	}

	set, err := c.fetch(ctx, jwksURL)
	if err != nil {
		return nil, &core.KeyResolutionError{JWKSURL: jwksURL, KeyID: kid, Err: err}
	}

	key, ok := set.LookupKeyID(kid)
	if !ok {
		return nil, &core.KeyResolutionError{
			JWKSURL: jwksURL,
			KeyID:   kid,
			Err:     fmt.Errorf("no key with kid %q in JWKS", kid),
		}
	}

	c.save(ctx, cacheKey, kid, key)
	return key, nil
}

// Invalidate drops the entry GetKey(jwksURL, token) would read.
func (c *KeyCache) Invalidate(ctx context.Context, jwksURL, token string) error {
	return c.store.Delete(ctx, CacheKey(jwksURL, token))
}

// Reset drops every cached key. The backing store must implement
// cache.Resetter.
func (c *KeyCache) Reset(ctx context.Context) error {
	r, ok := c.store.(cache.Resetter)
	if !ok {
		return fmt.Errorf("cache store %T does not support reset", c.store)
	}
	return r.Reset(ctx)
}

// CacheKey returns the store key for (jwksURL, token).
func CacheKey(jwksURL, token string) string {
	return cacheKeyPrefix + jwksURL + "|" + fingerprint(token)
}

func fingerprint(token string) string {
	if len(token) > FingerprintLength {
		return token[:FingerprintLength]
	}
	return token
}

func (c *KeyCache) lookup(ctx context.Context, cacheKey, kid string) (jwk.Key, bool) {
	raw, ok, err := c.store.Get(ctx, cacheKey)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("signing key cache read failed", "error", err)
		}
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var entry cachedKey
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	if entry.KeyID != kid {
		if c.logger != nil {
			c.logger.Debug("cached signing key has a different kid, refetching",
				"cached_kid", entry.KeyID,
				"kid", kid)
		}
		return nil, false
	}

	key, err := jwk.ParseKey(entry.Key)
	if err != nil {
		return nil, false
	}
	return key, true
}

// save is best effort: a failed write only costs a refetch.
func (c *KeyCache) save(ctx context.Context, cacheKey, kid string, key jwk.Key) {
	rawKey, err := json.Marshal(key)
	if err != nil {
		return
	}
	raw, err := json.Marshal(cachedKey{KeyID: kid, Key: rawKey, CachedAt: time.Now()})
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, cacheKey, raw, c.ttl); err != nil && c.logger != nil {
		c.logger.Warn("signing key cache write failed", "error", err)
	}
}

func (c *KeyCache) fetch(ctx context.Context, jwksURL string) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request returned status %d, expected 200", resp.StatusCode)
	}

	set, err := jwk.ParseReader(io.LimitReader(resp.Body, maxJWKSBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	return set, nil
}

// keyIDOf reads the kid header of a compact JWS without verifying it.
func keyIDOf(token string) (string, error) {
	msg, err := jws.Parse([]byte(token))
	if err != nil {
		return "", fmt.Errorf("could not parse token header: %w", err)
	}
	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return "", errors.New("token has no signature")
	}
	kid := sigs[0].ProtectedHeaders().KeyID()
	if kid == "" {
		return "", errors.New("token header has no kid")
	}
	return kid, nil
}
