package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Every typed error below answers errors.Is for one of them.
var (
	// ErrMissingToken is matched by *MissingTokenError.
	ErrMissingToken = errors.New("token missing")

	// ErrInvalidToken is matched by *InvalidTokenError and *KeyResolutionError.
	ErrInvalidToken = errors.New("token invalid")

	// ErrIdentityNotFound is returned when no identity is attached to a context.
	ErrIdentityNotFound = errors.New("identity not found in context")
)

// ErrorCode is a machine-readable InvalidTokenError category.
type ErrorCode string

// Error codes carried by InvalidTokenError.
const (
	ErrorCodeTokenMalformed    ErrorCode = "token_malformed"
	ErrorCodeInvalidAlgorithm  ErrorCode = "invalid_algorithm"
	ErrorCodeInvalidSignature  ErrorCode = "invalid_signature"
	ErrorCodeTokenExpired      ErrorCode = "token_expired"
	ErrorCodeTokenNotYetValid  ErrorCode = "token_not_yet_valid"
	ErrorCodeInvalidAudience   ErrorCode = "invalid_audience"
	ErrorCodeInvalidIssuer     ErrorCode = "invalid_issuer"
	ErrorCodeMissingClaim      ErrorCode = "missing_claim"
	ErrorCodeKeyResolution     ErrorCode = "key_resolution_failed"
	ErrorCodeVerificationError ErrorCode = "verification_error"
)

// Caller-facing messages. Clients match on these strings.
const (
	MessageMissingToken    = "Token não fornecido ou mal formatado."
	MessageInvalidToken    = "Token inválido"
	MessageTokenExpired    = "Token expirado."
	MessageInvalidAudience = "Audiência inválida."
	MessageInvalidIssuer   = "Emissor inválido."
)

// MissingTokenError reports that no bearer token could be read from the
// request: the header is absent or does not use the Bearer scheme.
type MissingTokenError struct {
	// Reason is logged but never returned to callers.
	Reason string
}

func (e *MissingTokenError) Error() string {
	if e.Reason != "" {
		return MessageMissingToken + " " + e.Reason
	}
	return MessageMissingToken
}

// Message is the caller-facing message.
func (e *MissingTokenError) Message() string {
	return MessageMissingToken
}

// Is allows the error to be compared with ErrMissingToken.
func (e *MissingTokenError) Is(target error) bool {
	return target == ErrMissingToken
}

// InvalidTokenError reports a token that failed verification.
type InvalidTokenError struct {
	// Code is a machine-readable error code (e.g. "token_expired").
	Code ErrorCode
	// Reason is a human-readable explanation safe to return to callers.
	Reason string
	// Claim names the missing or offending claim, when there is one.
	Claim string
	// Details contains the underlying error.
	Details error
}

// NewInvalidTokenError creates an InvalidTokenError.
func NewInvalidTokenError(code ErrorCode, reason string, details error) *InvalidTokenError {
	return &InvalidTokenError{Code: code, Reason: reason, Details: details}
}

// NewMissingClaimError reports a required claim that is absent or empty.
func NewMissingClaimError(claim string) *InvalidTokenError {
	return &InvalidTokenError{
		Code:   ErrorCodeMissingClaim,
		Reason: fmt.Sprintf("Token não contém '%s'.", claim),
		Claim:  claim,
	}
}

// Message is the caller-facing message. It never includes Details.
//
// Expiry, audience, issuer and missing claim failures carry a complete
// sentence as Reason and are reported as is. Every other failure is
// reported as "Token inválido: <reason>".
func (e *InvalidTokenError) Message() string {
	switch {
	case e.Reason == "":
		return MessageInvalidToken
	case e.standalone():
		return e.Reason
	default:
		return MessageInvalidToken + ": " + e.Reason
	}
}

func (e *InvalidTokenError) standalone() bool {
	switch e.Code {
	case ErrorCodeTokenExpired, ErrorCodeInvalidAudience, ErrorCodeInvalidIssuer, ErrorCodeMissingClaim:
		return true
	}
	return false
}

func (e *InvalidTokenError) Error() string {
	if e.Details != nil {
		return e.Message() + ": " + e.Details.Error()
	}
	return e.Message()
}

// Unwrap returns the underlying error.
func (e *InvalidTokenError) Unwrap() error {
	return e.Details
}

// Is allows the error to be compared with ErrInvalidToken.
func (e *InvalidTokenError) Is(target error) bool {
	return target == ErrInvalidToken
}

// KeyResolutionError reports that the signing key for a token could not be
// resolved from the JWKS endpoint. From the caller's perspective it is an
// invalid token.
type KeyResolutionError struct {
	JWKSURL string
	KeyID   string
	Err     error
}

// Message is the caller-facing message.
func (e *KeyResolutionError) Message() string {
	return MessageInvalidToken + ": não foi possível obter a chave pública"
}

func (e *KeyResolutionError) Error() string {
	var b strings.Builder
	b.WriteString("could not resolve signing key")
	if e.KeyID != "" {
		fmt.Fprintf(&b, " %q", e.KeyID)
	}
	if e.JWKSURL != "" {
		fmt.Fprintf(&b, " from %s", e.JWKSURL)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *KeyResolutionError) Unwrap() error {
	return e.Err
}

// Is allows the error to be compared with ErrInvalidToken.
func (e *KeyResolutionError) Is(target error) bool {
	return target == ErrInvalidToken
}

// ConfigurationError reports required settings that are missing. It is
// raised before any I/O is attempted.
type ConfigurationError struct {
	Component string
	Missing   []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: missing required configuration: %s", e.Component, strings.Join(e.Missing, ", "))
}

// TokenAcquisitionError reports a failed client-credentials token request.
type TokenAcquisitionError struct {
	// StatusCode is the token endpoint HTTP status, or 0 on transport errors.
	StatusCode int
	Err        error
}

func (e *TokenAcquisitionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token acquisition failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("token acquisition failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *TokenAcquisitionError) Unwrap() error {
	return e.Err
}

// Message returns the caller-facing message for a verification error.
// Errors outside the taxonomy are reported as a generic invalid token.
func Message(err error) string {
	var (
		missing *MissingTokenError
		invalid *InvalidTokenError
		keyErr  *KeyResolutionError
	)
	switch {
	case errors.As(err, &missing):
		return missing.Message()
	case errors.As(err, &invalid):
		return invalid.Message()
	case errors.As(err, &keyErr):
		return keyErr.Message()
	default:
		return MessageInvalidToken
	}
}
