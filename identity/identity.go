// Package identity carries the caller's opaque identity (user id + admin flag)
// and looks users up in the profiles directory. How the user logged in is
// not this package's concern.
package identity

import (
	"context"
	"errors"
)

// Identity is the minimal viewer capability the storefront core needs.
type Identity struct {
	UserID  string
	Email   string
	IsAdmin bool
}

type ctxKey struct{}

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext reads the identity attached by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.UserID != ""
}

var (
	ErrNotFound    = errors.New("identity: user not found")
	ErrUnavailable = errors.New("identity: directory unavailable")
)

// User is a directory entry.
type User struct {
	ID       string
	Email    string
	Username *string
	IsAdmin  bool
}

// Directory resolves user ids to directory entries.
type Directory interface {
	Lookup(ctx context.Context, userID string) (User, error)
}
