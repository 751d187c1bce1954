package core

import (
	"fmt"

	"pkt.systems/pslog"
	"pkt.systems/rollcall/schema"
)

// Observer is told about every dispatch after the new state is in place and
// before listeners run.
type Observer interface {
	ObserveDispatch(action Action, before, after State)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithReducer replaces the default Reduce.
func WithReducer(reducer Reducer) StoreOption {
	return func(s *Store) {
		if reducer != nil {
			s.reducer = reducer
		}
	}
}

// WithInitialState seeds the store.
func WithInitialState(state State) StoreOption {
	return func(s *Store) { s.state = state }
}

// WithLogger sets the store logger.
func WithLogger(logger pslog.Logger) StoreOption {
	return func(s *Store) { s.log = logger }
}

// WithObserver registers a dispatch observer.
func WithObserver(observer Observer) StoreOption {
	return func(s *Store) {
		if observer != nil {
			s.observers = append(s.observers, observer)
		}
	}
}

// Store owns the current State and runs dispatched actions through the reducer.
// It is not safe for concurrent use; callers serialize access (see Session).
type Store struct {
	state       State
	reducer     Reducer
	log         pslog.Logger
	observers   []Observer
	listeners   []listener
	nextID      uint64
	dispatching bool
}

type listener struct {
	id uint64
	fn func()
}

// NewStore constructs a store holding InitialState.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		state:   InitialState(),
		reducer: Reduce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current snapshot.
func (s *Store) State() State {
	return s.state
}

// Dispatch runs action through the reducer, replaces the state and notifies
// every listener before returning. Calling Dispatch from a listener returns
// schema.ErrReentrantDispatch and leaves the state alone.
func (s *Store) Dispatch(action Action) error {
	if s.dispatching {
		if s.log != nil {
			s.log.Warn("store dispatch rejected", "reason", "reentrant", "action", actionKind(action))
		}
		return fmt.Errorf("dispatch %s: %w", actionKind(action), schema.ErrReentrantDispatch)
	}
	s.dispatching = true
	defer func() { s.dispatching = false }()

	before := s.state
	s.state = s.reducer(before, action)
	for _, obs := range s.observers {
		obs.ObserveDispatch(action, before, s.state)
	}
	if s.log != nil {
		s.log.Trace("store dispatch", "action", actionKind(action), "names", s.state.Len())
	}

	// Listeners added or removed during the pass take effect on the next one.
	pass := make([]listener, len(s.listeners))
	copy(pass, s.listeners)
	for _, l := range pass {
		l.fn()
	}
	return nil
}

// Subscribe registers fn to run after every dispatch and returns a function
// that removes it. The returned function may be called more than once.
func (s *Store) Subscribe(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	return func() {
		for i, l := range s.listeners {
			if l.id == id {
				next := make([]listener, 0, len(s.listeners)-1)
				next = append(next, s.listeners[:i]...)
				s.listeners = append(next, s.listeners[i+1:]...)
				return
			}
		}
	}
}
