package validator

import (
	"errors"
	"strings"
)

var (
	// ErrTokenSegments is returned when a token is not a three-segment
	// compact JWS.
	ErrTokenSegments = errors.New("token must have exactly three dot-separated segments")

	// ErrTokenTooLarge is returned for tokens above maxTokenSize.
	ErrTokenTooLarge = errors.New("token exceeds maximum size (1MB)")
)

const maxTokenSize = 1 << 20

// checkTokenFormat rejects inputs that cannot be a compact JWS before they
// reach the parser.
func checkTokenFormat(token string) error {
	if token == "" {
		return errors.New("token is empty")
	}
	if len(token) > maxTokenSize {
		return ErrTokenTooLarge
	}
	if strings.Count(token, ".") != 2 {
		return ErrTokenSegments
	}
	return nil
}
