package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/rollcall/schema"
)

// Event is a change notification delivered to session subscribers.
type Event = schema.ChangeEvent

// Bus fans out session change events to per-session subscribers.
type Bus struct {
	mu    sync.Mutex
	subs  map[schema.SessionID]map[chan Event]struct{}
	log   pslog.Logger
	depth int
}

// DefaultDepth is the per-subscriber channel buffer.
const DefaultDepth = 64

// Option configures a Bus.
type Option func(*Bus)

// WithDepth sets the per-subscriber channel buffer. Values below 1 are ignored.
func WithDepth(depth int) Option {
	return func(b *Bus) {
		if depth > 0 {
			b.depth = depth
		}
	}
}

// New constructs a Bus.
func New(logger pslog.Logger, opts ...Option) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	b := &Bus{
		subs:  make(map[schema.SessionID]map[chan Event]struct{}),
		log:   logger,
		depth: DefaultDepth,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a subscriber for the session and returns a channel + cancel.
func (b *Bus) Subscribe(sessionID schema.SessionID) (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	sessionSubs := b.subs[sessionID]
	if sessionSubs == nil {
		sessionSubs = make(map[chan Event]struct{})
		b.subs[sessionID] = sessionSubs
	}
	sessionSubs[ch] = struct{}{}
	count := len(sessionSubs)
	b.mu.Unlock()
	b.log.With("session", sessionID).Debug("eventbus subscribe", "subs", count)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[sessionID]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, sessionID)
				}
			}
			close(ch)
			b.mu.Unlock()
			b.log.With("session", sessionID).Debug("eventbus unsubscribe")
		})
	}
}

// OnChange publishes a session change event.
func (b *Bus) OnChange(event schema.ChangeEvent) {
	b.publish(event.Snapshot.Session, event)
}

// Subscribers returns the number of open subscriptions across all sessions.
func (b *Bus) Subscribers() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, subs := range b.subs {
		total += len(subs)
	}
	return total
}

// publish sends under the lock so a concurrent cancel cannot close a channel
// mid-send. Sends never block. A closed event is always delivered: when the
// buffer is full the oldest pending event is discarded to make room.
func (b *Bus) publish(sessionID schema.SessionID, event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	sessionSubs := b.subs[sessionID]
	dropped := 0
	for sub := range sessionSubs {
		select {
		case sub <- event:
			continue
		default:
		}
		dropped++
		if event.Kind != schema.ChangeClosed {
			continue
		}
		select {
		case <-sub:
		default:
		}
		select {
		case sub <- event:
		default:
		}
	}
	b.mu.Unlock()
	if dropped > 0 {
		b.log.With("session", sessionID).Trace("eventbus dropped", "count", dropped)
	}
}
