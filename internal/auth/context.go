// Package auth carries the caller's session identity through request
// contexts. Token validation happens in the fronting gateway; this
// service only needs the identity for attribution (activity log,
// request logging).
package auth

import (
	"context"

	"github.com/google/uuid"
)

// UserContext holds the authenticated caller's identity
type UserContext struct {
	UserID      uuid.UUID
	DisplayName string
	Email       string
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// ActorName returns the caller's display name from the context, or
// "system" when the operation runs without a session (jobs, callbacks).
func ActorName(ctx context.Context) string {
	if user, ok := FromContext(ctx); ok && user.DisplayName != "" {
		return user.DisplayName
	}
	return "system"
}
