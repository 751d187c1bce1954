// Package sessionctx carries the active session on a context.
package sessionctx

import (
	"context"

	"pkt.systems/rollcall/core"
)

type sessionKey struct{}

// WithContext stores sess in the context.
func WithContext(ctx context.Context, sess *core.Session) context.Context {
	if ctx == nil || sess == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, sess)
}

// FromContext returns the session stored in the context, if any.
func FromContext(ctx context.Context) *core.Session {
	if ctx == nil {
		return nil
	}
	sess, _ := ctx.Value(sessionKey{}).(*core.Session)
	return sess
}
