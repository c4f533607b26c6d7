/*
Package oidc fetches the OpenID Connect discovery document of an issuer.

Entra ID publishes it per tenant:

	https://login.microsoftonline.com/{tenant}/v2.0/.well-known/openid-configuration

Only issuer, jwks_uri and token_endpoint are decoded. The document's issuer
must match the issuer it was requested for, so a misconfigured tenant fails
at startup instead of on every request.
*/
package oidc
