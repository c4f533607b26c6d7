/*
Package core holds the transport-independent authentication logic.

Core turns a raw bearer token into an *identity.Identity. It knows nothing
about HTTP or gRPC: transport adapters extract the token, call
Core.Authenticate and render the error.

	┌─────────────────────────────────────────────┐
	│         Transport Adapters                  │
	│  (net/http Gate, Gin, Echo, gRPC)           │
	└────────────────┬────────────────────────────┘
	                 │ token
	                 ▼
	┌─────────────────────────────────────────────┐
	│          Core                               │
	│  • empty token check                        │
	│  • Verifier (signature and claims)          │
	│  • ClaimsExtractor (claims to Identity)     │
	└─────────────────────────────────────────────┘

# Errors

Every authentication failure is one of:

  - *MissingTokenError: no token, or not a Bearer token. Matches ErrMissingToken.
  - *InvalidTokenError: the token failed a check. Matches ErrInvalidToken.
  - *KeyResolutionError: the signing key could not be found. Matches
    ErrInvalidToken.

Message returns the caller-facing text for any of them. Adapters must send
Message(err) to clients and keep err.Error() for logs.

# Context

SetIdentity and GetIdentity store the authenticated identity in a
context.Context. Adapters call SetIdentity; handlers call GetIdentity.
*/
package core
