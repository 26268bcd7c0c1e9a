// Package auth provides bearer-token authentication helpers for runway
// clients connecting to Airport-style Flight servers.
package auth

import "errors"

var (
	// ErrTokenIsEmpty is returned when an empty bearer token is supplied.
	ErrTokenIsEmpty = errors.New("authorization token is empty")

	// ErrInvalidAuthHeader is returned when an authorization header does not
	// use the Bearer scheme.
	ErrInvalidAuthHeader = errors.New("authorization header must use Bearer scheme")
)

// TokenProvider supplies the bearer token attached to each RPC.
// Implementations MUST be goroutine-safe; the transport may fetch tokens
// from concurrent calls.
type TokenProvider interface {
	// Token returns the current bearer token.
	// Return a fresh token on each call to support rotation.
	Token() (string, error)
}

// StaticToken is a TokenProvider for a fixed token string.
type StaticToken string

// Token implements TokenProvider.
func (t StaticToken) Token() (string, error) {
	if t == "" {
		return "", ErrTokenIsEmpty
	}
	return string(t), nil
}
