/*
Package jwks resolves and caches the public keys that sign Entra ID tokens.

# KeyCache

KeyCache.GetKey(ctx, jwksURL, token) reads the kid header of token, and
returns the matching key from the JWKS document at jwksURL:

	keys, err := jwks.NewKeyCache(jwks.WithCacheTTL(time.Hour))
	if err != nil {
	    log.Fatal(err)
	}

	key, err := keys.GetKey(ctx, "https://login.microsoftonline.com/<tenant>/discovery/v2.0/keys", rawToken)

Resolved keys are kept in a cache.Store (in memory by default) keyed by the
JWKS URL and the first ten characters of the token. A hit costs no network
call; a miss costs exactly one GET to the JWKS endpoint. Entries expire after
the configured TTL or when Invalidate is called.

Every failure (network error, non-200 status, malformed document, unknown
kid) is a *core.KeyResolutionError and nothing is written to the cache.

# Discovery

Discover reads an issuer's OIDC discovery document to find its jwks_uri and
token_endpoint. TenantJWKSURL and TenantIssuerURL build the well-known Entra
ID URLs directly from a tenant id.
*/
package jwks
