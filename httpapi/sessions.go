package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"pkt.systems/rollcall/core"
	"pkt.systems/rollcall/internal/logx"
	"pkt.systems/rollcall/schema"
)

// session maps a browser cookie to a core session. expiresAt slides forward
// on every request.
type session struct {
	token     string
	id        schema.SessionID
	expiresAt time.Time
}

type sessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	registry *core.Registry
	items    map[string]session
	now      func() time.Time
}

func newSessionStore(ttl time.Duration, registry *core.Registry) *sessionStore {
	return &sessionStore{
		ttl:      ttl,
		registry: registry,
		items:    make(map[string]session),
		now:      time.Now,
	}
}

func (s *sessionStore) create(ctx context.Context) (session, *core.Session) {
	sess := s.registry.Create(ctx)
	entry := session{
		token:     randomToken(32),
		id:        sess.ID(),
		expiresAt: s.now().Add(s.ttl),
	}
	s.mu.Lock()
	s.items[entry.token] = entry
	s.mu.Unlock()
	logx.WithSession(ctx, entry.id).Info("http session created", "expires", entry.expiresAt.Format(time.RFC3339))
	return entry, sess
}

// get resolves token to a live core session and extends its expiry. Expired
// entries and entries whose core session is gone are dropped.
func (s *sessionStore) get(ctx context.Context, token string) (session, *core.Session, bool) {
	if token == "" {
		return session{}, nil, false
	}
	s.mu.Lock()
	entry, ok := s.items[token]
	if !ok {
		s.mu.Unlock()
		return session{}, nil, false
	}
	now := s.now()
	if now.After(entry.expiresAt) {
		delete(s.items, token)
		s.mu.Unlock()
		s.registry.Close(ctx, entry.id)
		logx.WithSession(ctx, entry.id).Info("http session expired")
		return session{}, nil, false
	}
	sess, err := s.registry.Lookup(entry.id)
	if err != nil {
		delete(s.items, token)
		s.mu.Unlock()
		return session{}, nil, false
	}
	entry.expiresAt = now.Add(s.ttl)
	s.items[token] = entry
	s.mu.Unlock()
	return entry, sess, true
}

// peek returns the session id for token without touching expiry.
func (s *sessionStore) peek(token string) (schema.SessionID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[token]
	return entry.id, ok
}

func (s *sessionStore) delete(ctx context.Context, token string) bool {
	s.mu.Lock()
	entry, ok := s.items[token]
	if ok {
		delete(s.items, token)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.registry.Close(ctx, entry.id)
	logx.WithSession(ctx, entry.id).Info("http session deleted")
	return true
}

// sweep closes every expired session and returns how many were removed.
func (s *sessionStore) sweep(ctx context.Context) int {
	now := s.now()
	var expired []session
	s.mu.Lock()
	for token, entry := range s.items {
		if now.After(entry.expiresAt) {
			expired = append(expired, entry)
			delete(s.items, token)
		}
	}
	s.mu.Unlock()
	for _, entry := range expired {
		s.registry.Close(ctx, entry.id)
	}
	if len(expired) > 0 {
		logx.Ctx(ctx).Info("http sessions swept", "expired", len(expired))
	}
	return len(expired)
}

// closeAll drops every cookie session.
func (s *sessionStore) closeAll(ctx context.Context) int {
	s.mu.Lock()
	items := s.items
	s.items = make(map[string]session)
	s.mu.Unlock()
	for _, entry := range items {
		s.registry.Close(ctx, entry.id)
	}
	return len(items)
}

func (s *sessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func randomToken(size int) string {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
