package jwks

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/entrakit/go-entra-middleware/internal/oidc"
)

// Endpoints are the provider endpoints published in an issuer's discovery
// document.
type Endpoints struct {
	Issuer        string
	JWKSURL       string
	TokenEndpoint string
}

// Discover reads the OIDC discovery document of issuerURL.
func Discover(ctx context.Context, client *http.Client, issuerURL string) (*Endpoints, error) {
	u, err := url.Parse(issuerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid issuer URL: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}

	wk, err := oidc.GetWellKnownEndpointsFromIssuerURL(ctx, client, *u)
	if err != nil {
		return nil, err
	}

	issuer := wk.Issuer
	if issuer == "" {
		issuer = issuerURL
	}
	return &Endpoints{
		Issuer:        issuer,
		JWKSURL:       wk.JWKSURI,
		TokenEndpoint: wk.TokenEndpoint,
	}, nil
}

// TenantJWKSURL is the well-known Entra ID signing key endpoint of a tenant,
// used when discovery is not available. It is the v2.0 endpoint, matching
// the v2.0 issuer; {provider}/{tenant}/discovery/keys serves the same keys
// and can be set explicitly as the JWKS URL.
func TenantJWKSURL(providerURL, tenantID string) string {
	return strings.TrimSuffix(providerURL, "/") + "/" + tenantID + "/discovery/v2.0/keys"
}

// TenantIssuerURL is the v2.0 issuer of a tenant.
func TenantIssuerURL(providerURL, tenantID string) string {
	return strings.TrimSuffix(providerURL, "/") + "/" + tenantID + "/v2.0"
}
