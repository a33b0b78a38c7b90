package ctxkeys

import (
	"context"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	IdentityKey contextKey = "identity"
)

// Identity is the already-authenticated caller: the external identity service
// mints the token, the auth middleware verifies it and extracts these fields.
// The engine only ever decides whether a call is structurally and logically
// valid, never who may make it.
type Identity struct {
	UserID    string
	RootDirID string
}

func User(ctx context.Context) *Identity {
	id, _ := ctx.Value(IdentityKey).(*Identity)
	return id
}

func WithUser(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}
