package oidc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestServer creates a test HTTP server that returns the specified response code and body.
func setupTestServer(t *testing.T, responseCode int, responseBody string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tenant/v2.0/.well-known/openid-configuration", r.URL.Path)
		w.WriteHeader(responseCode)
		_, _ = w.Write([]byte(strings.ReplaceAll(responseBody, "{{URL}}", "http://"+r.Host)))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGetWellKnownEndpointsFromIssuerURL(t *testing.T) {
	tests := []struct {
		name         string
		responseCode int
		responseBody string
		wantErr      string
	}{
		{
			name:         "successful response",
			responseCode: http.StatusOK,
			responseBody: `{"issuer":"{{URL}}/tenant/v2.0","jwks_uri":"{{URL}}/keys","token_endpoint":"{{URL}}/token"}`,
		},
		{
			name:         "issuer omitted from the document",
			responseCode: http.StatusOK,
			responseBody: `{"jwks_uri":"{{URL}}/keys"}`,
		},
		{
			name:         "not found",
			responseCode: http.StatusNotFound,
			responseBody: `{"error":"not found"}`,
			wantErr:      "unexpected status 404",
		},
		{
			name:         "malformed json",
			responseCode: http.StatusOK,
			responseBody: `{"jwks_uri": "x"`,
			wantErr:      "could not decode json body",
		},
		{
			name:         "missing jwks_uri",
			responseCode: http.StatusOK,
			responseBody: `{"issuer":"{{URL}}/tenant/v2.0"}`,
			wantErr:      "has no jwks_uri",
		},
		{
			name:         "issuer mismatch",
			responseCode: http.StatusOK,
			responseBody: `{"issuer":"https://evil.example.com","jwks_uri":"{{URL}}/keys"}`,
			wantErr:      "discovery issuer mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(t, tt.responseCode, tt.responseBody)
			issuerURL, err := url.Parse(server.URL + "/tenant/v2.0/")
			require.NoError(t, err)

			endpoints, err := GetWellKnownEndpointsFromIssuerURL(context.Background(), server.Client(), *issuerURL)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, server.URL+"/keys", endpoints.JWKSURI)
		})
	}
}

func TestGetWellKnownEndpointsFromIssuerURL_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	issuerURL, err := url.Parse(server.URL)
	require.NoError(t, err)

	client := &http.Client{Timeout: 50 * time.Millisecond}
	_, err = GetWellKnownEndpointsFromIssuerURL(context.Background(), client, *issuerURL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not get well known endpoints")
}
