package jwtmiddleware

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_AuthHeaderTokenExtractor(t *testing.T) {
	testCases := []struct {
		name      string
		header    string
		wantToken string
		wantError error
	}{
		{
			name: "no header",
		},
		{
			name:      "bearer token",
			header:    "Bearer i-am-a-token",
			wantToken: "i-am-a-token",
		},
		{
			name:      "scheme is case insensitive",
			header:    "bearer i-am-a-token",
			wantToken: "i-am-a-token",
		},
		{
			name:      "basic auth",
			header:    "Basic dXNlcjpwYXNz",
			wantError: ErrAuthorizationFormat,
		},
		{
			name:      "bearer without token",
			header:    "Bearer",
			wantError: ErrAuthorizationFormat,
		},
		{
			name:      "too many parts",
			header:    "Bearer a b",
			wantError: ErrAuthorizationFormat,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, "https://example.com", nil)
			assert.NoError(t, err)
			if testCase.header != "" {
				req.Header.Set("Authorization", testCase.header)
			}

			token, err := AuthHeaderTokenExtractor(req)
			assert.ErrorIs(t, err, testCase.wantError)
			assert.Equal(t, testCase.wantToken, token)
		})
	}
}
