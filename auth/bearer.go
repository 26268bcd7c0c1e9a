package auth

import (
	"context"

	"google.golang.org/grpc/credentials"
)

// bearerCredentials attaches "authorization: Bearer <token>" metadata to
// every RPC. Implements credentials.PerRPCCredentials.
type bearerCredentials struct {
	provider  TokenProvider
	transport bool // require transport security
}

// NewBearerCredentials creates per-RPC credentials from a token provider.
// Pass the result to grpc.WithPerRPCCredentials.
//
// secure controls whether the credentials insist on a TLS transport.
// Set it to false only for local development against plaintext endpoints.
//
// Example:
//
//	creds := auth.NewBearerCredentials(auth.StaticToken("secret-api-key"), true)
//	conn, err := grpc.NewClient(addr, grpc.WithPerRPCCredentials(creds), ...)
func NewBearerCredentials(provider TokenProvider, secure bool) credentials.PerRPCCredentials {
	return &bearerCredentials{provider: provider, transport: secure}
}

// GetRequestMetadata implements credentials.PerRPCCredentials.
// Fetches a token from the provider for every RPC, so rotating providers
// work without reconnecting.
func (b *bearerCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	token, err := b.provider.Token()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"authorization": "Bearer " + token,
	}, nil
}

// RequireTransportSecurity implements credentials.PerRPCCredentials.
func (b *bearerCredentials) RequireTransportSecurity() bool {
	return b.transport
}
