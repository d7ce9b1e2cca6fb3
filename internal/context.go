package internal

import (
	"context"
	"time"
)

type ctxKey string

const actingUserKey ctxKey = "actingUserID"

// ContextWithActingUser stamps the authenticated user's id onto the context.
// Packages below the transport layer read it for log attribution without
// depending on the auth package's principal type.
func ContextWithActingUser(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, actingUserKey, userID)
}

// ActingUserID returns the user id stamped by the auth middleware, if any.
func ActingUserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(actingUserKey).(int64)
	return userID, ok
}

// defaultTimeout guards call sites that pass a zero duration from config.
const defaultTimeout = 5 * time.Second

// WithTimeout wraps context.WithTimeout, substituting a sane default when the
// duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = defaultTimeout
	}
	return context.WithTimeout(ctx, duration)
}
