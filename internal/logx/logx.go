package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/rollcall/schema"
)

type contextKey int

const (
	sessionKey contextKey = iota
	transportKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	if ctx == nil {
		ctx = context.Background()
	}
	return pslog.Ctx(ctx)
}

// WithSession annotates the logger with the session id if present.
func WithSession(ctx context.Context, sessionID schema.SessionID) pslog.Logger {
	log := Ctx(ctx)
	if sessionID != "" {
		if current, ok := contextValue[schema.SessionID](ctx, sessionKey); ok && current == sessionID {
			return log
		}
		log = log.With("session", sessionID)
	}
	return log
}

// WithTransport annotates the logger with the transport name ("ssh", "http", "repl").
func WithTransport(log pslog.Logger, transport string) pslog.Logger {
	if transport != "" {
		log = log.With("transport", transport)
	}
	return log
}

// WithRemote annotates the logger with the remote address when available.
func WithRemote(log pslog.Logger, remote string) pslog.Logger {
	if remote != "" {
		log = log.With("remote", remote)
	}
	return log
}

// ContextWithSession stores the session marker on the context for log de-duplication.
func ContextWithSession(ctx context.Context, sessionID schema.SessionID) context.Context {
	if ctx == nil || sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, sessionID)
}

// ContextWithSessionLogger attaches the logger and session marker to the context.
func ContextWithSessionLogger(ctx context.Context, log pslog.Logger, sessionID schema.SessionID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithSession(ctx, sessionID)
}

// ContextWithTransport stores the transport name on the context.
func ContextWithTransport(ctx context.Context, transport string) context.Context {
	if ctx == nil || transport == "" {
		return ctx
	}
	return context.WithValue(ctx, transportKey, transport)
}

// Transport returns the transport name stored on the context, if any.
func Transport(ctx context.Context) string {
	value, _ := contextValue[string](ctx, transportKey)
	return value
}

// CopyContextFields copies session/transport markers from src to dst.
func CopyContextFields(dst context.Context, src context.Context) context.Context {
	if src == nil {
		return dst
	}
	if id, ok := contextValue[schema.SessionID](src, sessionKey); ok && id != "" {
		dst = ContextWithSession(dst, id)
	}
	if transport, ok := contextValue[string](src, transportKey); ok && transport != "" {
		dst = ContextWithTransport(dst, transport)
	}
	return dst
}

func contextValue[T any](ctx context.Context, key contextKey) (T, bool) {
	var zero T
	if ctx == nil {
		return zero, false
	}
	value, ok := ctx.Value(key).(T)
	return value, ok
}
