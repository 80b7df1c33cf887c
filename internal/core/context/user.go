// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// UserContext contains the authenticated identity. OwnerID scopes every
// owned record (loans, ledgers, products, transactions).
type UserContext struct {
	OwnerID string
	Email   string
	Roles   []string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetOwnerID returns the acting owner id from context or empty string.
func GetOwnerID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.OwnerID
	}
	return ""
}

// WithOwnerID is a shorthand for background jobs and tests that only carry an owner.
func WithOwnerID(ctx context.Context, ownerID string) context.Context {
	return WithUser(ctx, &UserContext{OwnerID: ownerID})
}

// HasRole checks if user has specific role.
func HasRole(ctx context.Context, role string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
