// Package auth extracts bearer credentials and resolves them to a caller.
package auth

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrMissingCredentials means no Authorization header was sent.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrMalformedCredentials means the header is not "Bearer <token>".
	ErrMalformedCredentials = errors.New("malformed credentials")
	// ErrInvalidToken means the identity service rejected the token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrVerifierUnavailable means the identity service could not be reached.
	ErrVerifierUnavailable = errors.New("identity service unavailable")
)

// Identity is the verified caller of a request.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Name returns the most readable identifier available.
func (i Identity) Name() string {
	if i.Email != "" {
		return i.Email
	}
	return i.ID
}

// Verifier resolves a bearer token to an identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingCredentials
	}

	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", ErrMalformedCredentials
	}
	return fields[1], nil
}

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
