package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/rollcall/internal/logx"
	"pkt.systems/rollcall/schema"
)

// Registry owns the live sessions. Nothing is persisted: a closed or
// expired session is gone.
type Registry struct {
	deps RegistryDeps

	mu       sync.Mutex
	sessions map[schema.SessionID]*Session
}

// NewRegistry constructs an empty registry.
func NewRegistry(deps RegistryDeps) *Registry {
	if deps.Logger == nil {
		deps.Logger = pslog.Ctx(context.Background())
	}
	return &Registry{
		deps:     deps,
		sessions: make(map[schema.SessionID]*Session),
	}
}

// Create starts a new session.
func (r *Registry) Create(ctx context.Context) *Session {
	sess := newSession(newSessionID(), r.deps)
	r.mu.Lock()
	r.sessions[sess.id] = sess
	count := len(r.sessions)
	r.mu.Unlock()
	logx.WithTransport(logx.WithSession(ctx, sess.id), logx.Transport(ctx)).Info("session created", "sessions", count)
	return sess
}

// Get returns a live session.
func (r *Registry) Get(id schema.SessionID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// Lookup is Get with a validated id and an error result.
func (r *Registry) Lookup(id schema.SessionID) (*Session, error) {
	if err := schema.ValidateSessionID(id); err != nil {
		return nil, err
	}
	sess, ok := r.Get(id)
	if !ok {
		return nil, schema.ErrSessionNotFound
	}
	return sess, nil
}

// Close removes the session and announces it to subscribers.
func (r *Registry) Close(ctx context.Context, id schema.SessionID) bool {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	count := len(r.sessions)
	r.mu.Unlock()
	if !ok {
		return false
	}
	sess.close()
	logx.WithSession(ctx, id).Info("session closed", "sessions", count, "age", time.Since(sess.CreatedAt()).Round(time.Second))
	return true
}

// CloseAll closes every session.
func (r *Registry) CloseAll(ctx context.Context) int {
	closed := 0
	for _, id := range r.IDs() {
		if r.Close(ctx, id) {
			closed++
		}
	}
	return closed
}

// IDs returns the live session ids in sorted order.
func (r *Registry) IDs() []schema.SessionID {
	r.mu.Lock()
	ids := make([]schema.SessionID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
