package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"
)

// WithToken returns a context carrying the bearer token in outgoing gRPC
// metadata. Use this for one-off authenticated calls when the connection
// itself was dialed without per-RPC credentials.
func WithToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

// TokenFromOutgoingContext extracts the bearer token from outgoing metadata.
// Returns ErrTokenIsEmpty if no authorization header is present and
// ErrInvalidAuthHeader if the header does not use the Bearer scheme.
// Used by tests and custom transports that re-frame requests.
func TokenFromOutgoingContext(ctx context.Context) (string, error) {
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		return "", ErrTokenIsEmpty
	}

	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		return "", ErrTokenIsEmpty
	}

	// Use first authorization header
	const bearerPrefix = "Bearer "
	authHeader := authHeaders[0]
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthHeader
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrTokenIsEmpty
	}

	return token, nil
}
