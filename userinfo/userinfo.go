// Package userinfo adds directory attributes to authenticated users by
// asking an auxiliary user-info service about them.
//
// The service is called as GET {url}/{username}/ with the application's own
// access token and answers with a JSON object. Each field named in the
// mapping is copied onto identity.Identity.Attributes under its mapped
// name. A *Client implements core.Enricher.
package userinfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/entrakit/go-entra-middleware/apptoken"
	"github.com/entrakit/go-entra-middleware/identity"
)

// DefaultTimeout bounds one lookup, token acquisition included.
const DefaultTimeout = 10 * time.Second

const maxBodySize = 1 << 20

// DefaultMapping maps user-info fields to identity attributes.
func DefaultMapping() map[string]string {
	return map[string]string{
		"department":        "azure_department",
		"department_number": "azure_department_number",
		"company":           "azure_company",
		"employee_number":   "azure_employee_role",
	}
}

// Config locates the user-info service.
type Config struct {
	URL     string            `mapstructure:"url"`
	Timeout time.Duration     `mapstructure:"timeout"`
	Mapping map[string]string `mapstructure:"mapping"` // service field -> attribute
}

// Logger defines an optional logging interface for the client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Client looks users up in the user-info service.
type Client struct {
	baseURL   string
	mapping   map[string]string
	transport *apptoken.Transport
	client    *http.Client
	logger    Logger
}

// Enrich sets every mapped attribute on id. Attributes the service did not
// return are set to nil, and so is every attribute when the lookup fails;
// the error is returned for the caller to log.
func (c *Client) Enrich(ctx context.Context, id *identity.Identity) error {
	info, err := c.Lookup(ctx, id.Username)
	for field, attr := range c.mapping {
		id.SetAttribute(attr, info[field])
	}
	return err
}

// Lookup fetches the user-info document for username.
func (c *Client) Lookup(ctx context.Context, username string) (map[string]any, error) {
	if username == "" {
		return nil, errors.New("user info: empty username")
	}
	target := c.userURL(username)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("user info for %q: %w", username, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info for %q: %w", username, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, fmt.Errorf("user info for %q: unexpected status %d", username, resp.StatusCode)
	}

	var info map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&info); err != nil {
		return nil, fmt.Errorf("user info for %q: decoding response: %w", username, err)
	}

	if c.logger != nil {
		c.logger.Debug("user info fetched", "username", username, "fields", len(info), "duration", time.Since(start))
	}
	return info, nil
}

func (c *Client) userURL(username string) string {
	return c.baseURL + "/" + url.PathEscape(username) + "/"
}

func trimBaseURL(raw string) string {
	return strings.TrimRight(raw, "/")
}
