package core

import (
	"context"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/rollcall/internal/logx"
	"pkt.systems/rollcall/schema"
)

// Session is one consumer's view of the demo: a Store for the name list and
// a Toggle. All methods take the session lock, so concurrent transports see
// the same run-to-completion behavior as a single-threaded UI.
//
// Listeners registered with Subscribe run with the lock held and must not
// call back into the session.
type Session struct {
	id      schema.SessionID
	created time.Time
	sink    EventSink
	flips   FlipObserver
	log     pslog.Logger

	mu     sync.Mutex
	store  *Store
	toggle *Toggle
	closed bool
}

func newSession(id schema.SessionID, deps RegistryDeps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	logger = logger.With("session", id)
	s := &Session{
		id:      id,
		created: time.Now(),
		sink:    deps.EventSink,
		log:     logger,
		toggle:  NewToggle(),
	}
	if fo, ok := deps.Observer.(FlipObserver); ok {
		s.flips = fo
	}
	opts := []StoreOption{WithLogger(logger)}
	if deps.Observer != nil {
		opts = append(opts, WithObserver(deps.Observer))
	}
	s.store = NewStore(opts...)
	s.store.Subscribe(func() { s.publishLocked(schema.ChangeNames) })
	return s
}

// ID returns the session id.
func (s *Session) ID() schema.SessionID {
	return s.id
}

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time {
	return s.created
}

// AddName runs input through the add-name gate. It reports whether a name
// was added, along with the snapshot taken under the same lock.
func (s *Session) AddName(ctx context.Context, input string) (schema.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.useLocked(); err != nil {
		return schema.Snapshot{}, false, err
	}
	added, err := SubmitName(s.store, input)
	log := s.logger(ctx)
	if err != nil {
		log.Warn("session add name failed", "err", err)
		return schema.Snapshot{}, false, err
	}
	if !added {
		log.Debug("session add name skipped", "reason", "blank input")
		return s.snapshotLocked(), false, nil
	}
	log.Info("session name added", "names", s.store.State().Len())
	return s.snapshotLocked(), true, nil
}

// RemoveName removes the name at index and reports whether anything was
// removed. Out-of-range positions are a no-op.
func (s *Session) RemoveName(ctx context.Context, index int) (schema.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.useLocked(); err != nil {
		return schema.Snapshot{}, false, err
	}
	before := s.store.State().Len()
	if err := RemoveName(s.store, index); err != nil {
		s.logger(ctx).Warn("session remove name failed", "index", index, "err", err)
		return schema.Snapshot{}, false, err
	}
	after := s.store.State().Len()
	s.logger(ctx).Info("session name removed", "index", index, "removed", before-after, "names", after)
	return s.snapshotLocked(), after < before, nil
}

// Flip flips the toggle. The returned snapshot carries the new value.
func (s *Session) Flip(ctx context.Context) (schema.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.useLocked(); err != nil {
		return schema.Snapshot{}, err
	}
	value := s.toggle.Flip()
	if s.flips != nil {
		s.flips.ObserveFlip(value)
	}
	s.logger(ctx).Info("session toggle flipped", "flag", value)
	s.publishLocked(schema.ChangeFlag)
	return s.snapshotLocked(), nil
}

// State returns the current name list.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.State()
}

// Snapshot returns the transport view of the session.
func (s *Session) Snapshot() schema.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to run after every dispatch on the session store.
func (s *Session) Subscribe(fn func()) func() {
	s.mu.Lock()
	unsubscribe := s.store.Subscribe(fn)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		unsubscribe()
		s.mu.Unlock()
	}
}

// Closed reports whether the session was closed.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	s.publishLocked(schema.ChangeClosed)
	return true
}

func (s *Session) useLocked() error {
	if s.closed {
		return schema.ErrSessionClosed
	}
	return nil
}

func (s *Session) snapshotLocked() schema.Snapshot {
	return schema.Snapshot{
		Session:  s.id,
		Names:    s.store.State().Names(),
		Flag:     s.toggle.Value(),
		FlagText: s.toggle.Text(),
	}
}

func (s *Session) publishLocked(kind schema.ChangeKind) {
	if s.sink == nil {
		return
	}
	s.sink.OnChange(schema.ChangeEvent{Kind: kind, Snapshot: s.snapshotLocked()})
}

// logger prefers the request logger when a transport put one on ctx.
func (s *Session) logger(ctx context.Context) pslog.Logger {
	if ctx == nil || logx.Transport(ctx) == "" {
		return s.log
	}
	return logx.WithSession(ctx, s.id)
}
