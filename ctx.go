package users

import (
	"context"
)

var userCtxKey = &contextKey{"user"}
var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithSessionContext sets the SessionContext in the given context
func WithSessionContext(r context.Context, sess *SessionContext) context.Context {
	return context.WithValue(r, sessionCtxKey, sess)
}

// SessionFromContext extracts the SessionContext from the standard context
func SessionFromContext(ctx context.Context) (*SessionContext, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(*SessionContext)
	return raw, ok
}

// Owns reports whether the session in ctx owns the target record. Absent
// session means no.
func Owns(ctx context.Context, targetID int64) bool {
	sess, ok := SessionFromContext(ctx)
	if !ok {
		return false
	}
	return sess.Owns(targetID)
}
