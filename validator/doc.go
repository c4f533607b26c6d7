/*
Package validator verifies Microsoft Entra ID access tokens using the
lestrrat-go/jwx v2 library.

A Validator implements core.Verifier. It resolves the signing key through a
KeyResolver (normally a *jwks.KeyCache), verifies the signature and then
validates the registered claims Entra ID issues.

# Validation Order

Checks run in this order and the first failure wins:

 1. The token is a compact JWS (three segments, at most 1MB).
 2. The signing algorithm is allowed (RS256 by default).
 3. The signing key is resolved from the JWKS endpoint by kid.
 4. The signature verifies.
 5. exp is present and in the future, nbf (if present) is in the past.
 6. aud contains the client id, bare or as api://<client id>.
 7. iss matches the configured issuer.
 8. Every required claim is present and non-empty (preferred_username by
    default). Identity claims such as preferred_username must be strings.

# Client-Credentials Tokens

A token with neither upn nor preferred_username was issued to an
application rather than a user. Such tokens are accepted by default and the
user claims in the required list are not asked of them. Turn them off with
WithClientCredentialsTokens(false).

Failures are *core.InvalidTokenError values carrying a core.ErrorCode and a
Portuguese reason, except key resolution failures which surface as the
*core.KeyResolutionError returned by the resolver. Both match
core.ErrInvalidToken.

# Basic Usage

	keys, err := jwks.NewKeyCache()
	if err != nil {
	    log.Fatal(err)
	}

	v, err := validator.New(
	    validator.WithKeyResolver(keys, jwks.TenantJWKSURL(provider, tenantID)),
	    validator.WithIssuer(jwks.TenantIssuerURL(provider, tenantID)),
	    validator.WithAudience(clientID),
	)
	if err != nil {
	    log.Fatal(err)
	}

	claims, err := v.ValidateToken(ctx, token)

# Development Mode

WithSignatureVerification(false) skips steps 2 to 4. The claim checks still
run. Never disable verification in production.
*/
package validator
