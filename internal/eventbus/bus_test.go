package eventbus

import (
	"testing"
	"time"

	"pkt.systems/rollcall/schema"
)

func changeFor(id schema.SessionID, names ...string) schema.ChangeEvent {
	return schema.ChangeEvent{
		Kind:     schema.ChangeNames,
		Snapshot: schema.Snapshot{Session: id, Names: names, Flag: true},
	}
}

func TestSubscribeAndPublish(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe("s1")
	defer cancel()

	bus.OnChange(changeFor("s1", "Alice"))

	select {
	case got := <-ch:
		if got.Kind != schema.ChangeNames {
			t.Fatalf("expected names event, got %v", got.Kind)
		}
		if got.Snapshot.Session != "s1" || len(got.Snapshot.Names) != 1 || got.Snapshot.Names[0] != "Alice" {
			t.Fatalf("unexpected payload: %+v", got.Snapshot)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for event")
	}
}

func TestPublishOnlyReachesOwnSession(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe("s1")
	defer cancel()
	bus.OnChange(changeFor("s2", "Bob"))
	select {
	case got := <-ch:
		t.Fatalf("unexpected event for other session: %+v", got)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe("s1")
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
	if bus.Subscribers() != 0 {
		t.Fatalf("expected no subscribers, got %d", bus.Subscribers())
	}
	bus.OnChange(changeFor("s1"))
}

func TestSubscribersCount(t *testing.T) {
	bus := New(nil)
	_, c1 := bus.Subscribe("s1")
	_, c2 := bus.Subscribe("s1")
	_, c3 := bus.Subscribe("s2")
	defer c1()
	defer c3()
	if got := bus.Subscribers(); got != 3 {
		t.Fatalf("expected 3 subscribers, got %d", got)
	}
	c2()
	if got := bus.Subscribers(); got != 2 {
		t.Fatalf("expected 2 subscribers, got %d", got)
	}
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	bus := New(nil, WithDepth(1))
	_, cancel := bus.Subscribe("s1")
	defer cancel()

	bus.OnChange(changeFor("s1"))
	done := make(chan struct{})
	go func() {
		bus.OnChange(changeFor("s1"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("publish blocked on full channel")
	}
}

func TestNilBusIsSafe(t *testing.T) {
	var bus *Bus
	ch, cancel := bus.Subscribe("s1")
	cancel()
	if ch != nil {
		t.Fatalf("expected nil channel from nil bus")
	}
	bus.OnChange(changeFor("s1"))
	if bus.Subscribers() != 0 {
		t.Fatalf("expected zero subscribers")
	}
}

func TestClosedEventReachesFullSubscriber(t *testing.T) {
	bus := New(nil, WithDepth(1))
	ch, cancel := bus.Subscribe("s1")
	defer cancel()

	bus.OnChange(changeFor("s1", "Alice"))
	bus.OnChange(changeFor("s1", "Alice", "Bob"))
	bus.OnChange(schema.ChangeEvent{Kind: schema.ChangeClosed, Snapshot: schema.Snapshot{Session: "s1"}})

	select {
	case got := <-ch:
		if got.Kind != schema.ChangeClosed {
			t.Fatalf("expected closed event to replace the pending one, got %v", got.Kind)
		}
	default:
		t.Fatalf("closed event was not delivered")
	}
	select {
	case got := <-ch:
		t.Fatalf("unexpected extra event %v", got.Kind)
	default:
	}
}
