package jwtgrpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/metadata"

	jwtmiddleware "github.com/entrakit/go-entra-middleware"
)

// TokenExtractor extracts bearer tokens from gRPC metadata.
type TokenExtractor func(ctx context.Context) (string, error)

// ErrMultipleAuthHeaders indicates multiple authorization metadata entries were provided.
var ErrMultipleAuthHeaders = errors.New("multiple authorization metadata entries are not allowed")

// MetadataTokenExtractor extracts the token from the "authorization" metadata
// key in the "Bearer <token>" format.
//
// gRPC normalizes incoming metadata keys to lowercase, so this extractor only
// checks the lowercase "authorization" key.
func MetadataTokenExtractor(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil // No metadata, no token (not an error)
	}

	values := md.Get("authorization")
	switch len(values) {
	case 0:
		return "", nil
	case 1:
		return jwtmiddleware.BearerToken(values[0])
	default:
		return "", ErrMultipleAuthHeaders
	}
}
