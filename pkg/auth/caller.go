// Package auth identifies the caller of an API request.
package auth

import (
	"context"
	"errors"
)

// ErrInvalidToken is returned when a bearer token cannot be verified.
var ErrInvalidToken = errors.New("invalid token")

// Caller is the authenticated principal of a request.
type Caller struct {
	UID   string
	Email string
}

// TokenVerifier turns a bearer token into a Caller.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Caller, error)
}

type callerKey struct{}

// WithCaller attaches c to ctx.
func WithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// FromContext returns the caller attached to ctx, or nil.
func FromContext(ctx context.Context) *Caller {
	c, _ := ctx.Value(callerKey{}).(*Caller)
	return c
}
