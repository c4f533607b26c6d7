package jwks

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrakit/go-entra-middleware/cache"
	"github.com/entrakit/go-entra-middleware/core"
	"github.com/entrakit/go-entra-middleware/internal/testissuer"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func mustKeyWithID(t *testing.T, raw any, kid string) jwk.Key {
	t.Helper()
	key, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	return key
}

func Test_KeyCache_GetKey(t *testing.T) {
	ctx := context.Background()

	t.Run("it only calls the JWKS endpoint once for the same arguments", func(t *testing.T) {
		iss := testissuer.New(t)
		token := iss.Sign(t, iss.Claims("john.doe@example.com"))

		keys, err := NewKeyCache()
		require.NoError(t, err)

		first, err := keys.GetKey(ctx, iss.JWKSURL(), token)
		require.NoError(t, err)
		second, err := keys.GetKey(ctx, iss.JWKSURL(), token)
		require.NoError(t, err)

		assert.Equal(t, int32(1), iss.JWKSRequests.Load())
		assert.Equal(t, "kid-1", first.KeyID())
		assert.Equal(t, first.KeyID(), second.KeyID())
	})

	t.Run("it fetches again after the entry is invalidated", func(t *testing.T) {
		iss := testissuer.New(t)
		token := iss.Sign(t, iss.Claims("john.doe@example.com"))

		keys, err := NewKeyCache()
		require.NoError(t, err)

		_, err = keys.GetKey(ctx, iss.JWKSURL(), token)
		require.NoError(t, err)
		require.NoError(t, keys.Invalidate(ctx, iss.JWKSURL(), token))

		key, err := keys.GetKey(ctx, iss.JWKSURL(), token)
		require.NoError(t, err)
		assert.Equal(t, int32(2), iss.JWKSRequests.Load())
		assert.Equal(t, "kid-1", key.KeyID())
	})

	t.Run("it fetches again once the ttl elapsed", func(t *testing.T) {
		iss := testissuer.New(t)
		token := iss.Sign(t, iss.Claims("john.doe@example.com"))
		clock := &fakeClock{t: time.Now()}

		keys, err := NewKeyCache(
			WithStore(cache.NewMemoryStore(cache.WithClock(clock.Now))),
			WithCacheTTL(time.Hour),
		)
		require.NoError(t, err)

		_, err = keys.GetKey(ctx, iss.JWKSURL(), token)
		require.NoError(t, err)

		clock.Advance(59 * time.Minute)
		_, err = keys.GetKey(ctx, iss.JWKSURL(), token)
		require.NoError(t, err)
		assert.Equal(t, int32(1), iss.JWKSRequests.Load())

		clock.Advance(time.Minute)
		_, err = keys.GetKey(ctx, iss.JWKSURL(), token)
		require.NoError(t, err)
		assert.Equal(t, int32(2), iss.JWKSRequests.Load())
	})

	t.Run("it refetches when a rotated key shares the token fingerprint", func(t *testing.T) {
		iss := testissuer.New(t)
		oldToken := iss.Sign(t, iss.Claims("john.doe@example.com"))

		keys, err := NewKeyCache()
		require.NoError(t, err)

		_, err = keys.GetKey(ctx, iss.JWKSURL(), oldToken)
		require.NoError(t, err)

		iss.AddKey(t, "kid-2")
		newToken := iss.Sign(t, iss.Claims("john.doe@example.com"))
		require.Equal(t, CacheKey(iss.JWKSURL(), oldToken), CacheKey(iss.JWKSURL(), newToken))

		key, err := keys.GetKey(ctx, iss.JWKSURL(), newToken)
		require.NoError(t, err)
		assert.Equal(t, "kid-2", key.KeyID())
		assert.Equal(t, int32(2), iss.JWKSRequests.Load())
	})

	t.Run("it reports an unknown kid without caching anything", func(t *testing.T) {
		iss := testissuer.New(t)
		store := cache.NewMemoryStore()

		raw, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		foreign := testissuer.SignWith(t, mustKeyWithID(t, raw, "unknown-kid"), jwa.RS256, iss.Claims("a@b.c"))

		keys, err := NewKeyCache(WithStore(store))
		require.NoError(t, err)

		_, err = keys.GetKey(ctx, iss.JWKSURL(), foreign)
		var keyErr *core.KeyResolutionError
		require.ErrorAs(t, err, &keyErr)
		assert.Equal(t, "unknown-kid", keyErr.KeyID)
		assert.ErrorIs(t, err, core.ErrInvalidToken)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("it reports JWKS endpoint failures without caching anything", func(t *testing.T) {
		iss := testissuer.New(t)
		token := iss.Sign(t, iss.Claims("john.doe@example.com"))
		iss.FailJWKS(http.StatusServiceUnavailable)
		store := cache.NewMemoryStore()

		keys, err := NewKeyCache(WithStore(store))
		require.NoError(t, err)

		_, err = keys.GetKey(ctx, iss.JWKSURL(), token)
		var keyErr *core.KeyResolutionError
		require.ErrorAs(t, err, &keyErr)
		assert.Contains(t, err.Error(), "status 503")
		assert.Equal(t, 0, store.Len())

		iss.FailJWKS(0)
		_, err = keys.GetKey(ctx, iss.JWKSURL(), token)
		require.NoError(t, err)
	})

	t.Run("it rejects tokens without a kid or that cannot be parsed", func(t *testing.T) {
		iss := testissuer.New(t)
		raw, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		noKid := testissuer.SignWith(t, raw, jwa.RS256, iss.Claims("a@b.c"))

		keys, err := NewKeyCache()
		require.NoError(t, err)

		for _, token := range []string{noKid, "not-a-token"} {
			_, err = keys.GetKey(ctx, iss.JWKSURL(), token)
			var keyErr *core.KeyResolutionError
			require.ErrorAs(t, err, &keyErr)
		}
		assert.Zero(t, iss.JWKSRequests.Load())
	})

	t.Run("it serves concurrent callers", func(t *testing.T) {
		iss := testissuer.New(t)
		token := iss.Sign(t, iss.Claims("john.doe@example.com"))

		keys, err := NewKeyCache()
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make(chan error, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := keys.GetKey(ctx, iss.JWKSURL(), token)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			assert.NoError(t, err)
		}
		_, err = keys.GetKey(ctx, iss.JWKSURL(), token)
		require.NoError(t, err)
	})

	t.Run("it resets resettable stores", func(t *testing.T) {
		iss := testissuer.New(t)
		token := iss.Sign(t, iss.Claims("john.doe@example.com"))

		keys, err := NewKeyCache()
		require.NoError(t, err)

		_, err = keys.GetKey(ctx, iss.JWKSURL(), token)
		require.NoError(t, err)
		require.NoError(t, keys.Reset(ctx))

		_, err = keys.GetKey(ctx, iss.JWKSURL(), token)
		require.NoError(t, err)
		assert.Equal(t, int32(2), iss.JWKSRequests.Load())
	})
}

func Test_NewKeyCache_Options(t *testing.T) {
	_, err := NewKeyCache(WithStore(nil))
	assert.EqualError(t, err, "store cannot be nil")

	_, err = NewKeyCache(WithHTTPClient(nil))
	assert.EqualError(t, err, "HTTP client cannot be nil")

	_, err = NewKeyCache(WithCacheTTL(-time.Second))
	assert.EqualError(t, err, "cache TTL cannot be negative")

	_, err = NewKeyCache(WithLogger(nil))
	assert.EqualError(t, err, "logger cannot be nil")

	keys, err := NewKeyCache(WithCacheTTL(0))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, keys.ttl)
}

func Test_CacheKey(t *testing.T) {
	assert.Equal(t, "jwks:https://x/keys|abcdefghij", CacheKey("https://x/keys", "abcdefghijklmnop"))
	assert.Equal(t, "jwks:https://x/keys|abc", CacheKey("https://x/keys", "abc"))
}

func Test_Discover(t *testing.T) {
	iss := testissuer.New(t)

	endpoints, err := Discover(context.Background(), iss.Server.Client(), iss.IssuerURL())
	require.NoError(t, err)
	assert.Equal(t, iss.JWKSURL(), endpoints.JWKSURL)
	assert.Equal(t, iss.IssuerURL(), endpoints.Issuer)
	assert.Contains(t, endpoints.TokenEndpoint, "/oauth2/v2.0/token")

	assert.Equal(t,
		"https://login.microsoftonline.com/tenant/discovery/v2.0/keys",
		TenantJWKSURL("https://login.microsoftonline.com/", "tenant"))
	assert.Equal(t,
		"https://login.microsoftonline.com/tenant/v2.0",
		TenantIssuerURL("https://login.microsoftonline.com", "tenant"))
}
