package apptoken

import (
	"strings"

	"github.com/entrakit/go-entra-middleware/core"
)

// DefaultGrantType is the OAuth 2.0 client credentials grant.
const DefaultGrantType = "client_credentials"

// Config holds the client credentials used to request application tokens.
// Every field is required.
type Config struct {
	ProviderURL  string `mapstructure:"provider_url"`
	TenantID     string `mapstructure:"tenant_id"`
	GrantType    string `mapstructure:"grant_type"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Scope        string `mapstructure:"scope"`
}

// Validate reports every missing setting at once as a
// *core.ConfigurationError.
func (c Config) Validate() error {
	var missing []string
	for _, field := range []struct{ name, value string }{
		{"provider_url", c.ProviderURL},
		{"tenant_id", c.TenantID},
		{"grant_type", c.GrantType},
		{"client_id", c.ClientID},
		{"client_secret", c.ClientSecret},
		{"scope", c.Scope},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return &core.ConfigurationError{Component: "apptoken", Missing: missing}
	}
	return nil
}

// TokenURL is the tenant's v2.0 token endpoint.
func (c Config) TokenURL() string {
	return strings.TrimSuffix(c.ProviderURL, "/") + "/" + c.TenantID + "/oauth2/v2.0/token"
}
