// ABOUTME: Session context for handlers behind the session gate
// ABOUTME: Provides WithSession/SessionFromContext for propagating the session via context

package auth

import (
	"context"
)

// sessionContextKey is the key type for storing Session in context.Context.
type sessionContextKey struct{}

// WithSession returns a new context with the session attached.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFromContext retrieves the session from the context.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(Session)
	return s, ok
}
