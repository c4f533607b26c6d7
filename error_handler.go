package jwtmiddleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/entrakit/go-entra-middleware/core"
)

// ErrorHandler is called when a protected request fails authentication. It
// must write the response; the next handler is not called.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// ErrorResponse is the JSON body written by DefaultErrorHandler.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DefaultErrorHandler answers every authentication failure with 401 and a
// JSON body {"error": "<message>"}. The message comes from core.Message and
// never includes internal details such as the JWKS URL or the key id.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", wwwAuthenticate(err))
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: core.Message(err)})
}

// wwwAuthenticate builds the RFC 6750 challenge for err.
func wwwAuthenticate(err error) string {
	if errors.Is(err, core.ErrMissingToken) {
		return `Bearer`
	}
	return `Bearer error="invalid_token"`
}
