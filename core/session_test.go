package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"pkt.systems/rollcall/schema"
)

type recordingSink struct {
	mu     sync.Mutex
	events []schema.ChangeEvent
}

func (r *recordingSink) OnChange(event schema.ChangeEvent) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recordingSink) kinds() []schema.ChangeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]schema.ChangeKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (r *recordingSink) last() schema.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func TestSessionAddAndRemove(t *testing.T) {
	sink := &recordingSink{}
	reg := NewRegistry(RegistryDeps{EventSink: sink})
	sess := reg.Create(context.Background())
	ctx := context.Background()

	for _, name := range []string{"Alice", "Bob", "Carol"} {
		snap, added, err := sess.AddName(ctx, name)
		if err != nil || !added {
			t.Fatalf("add %q: added=%v err=%v", name, added, err)
		}
		if snap.Names[len(snap.Names)-1] != name {
			t.Fatalf("add %q returned %q", name, snap.Names)
		}
	}
	snap, removed, err := sess.RemoveName(ctx, 1)
	if err != nil || !removed {
		t.Fatalf("remove: removed=%v err=%v", removed, err)
	}
	if !reflect.DeepEqual(snap.Names, []string{"Alice", "Carol"}) {
		t.Fatalf("got %q", snap.Names)
	}
	snap, removed, err = sess.RemoveName(ctx, 9)
	if err != nil || removed {
		t.Fatalf("remove out of range: removed=%v err=%v", removed, err)
	}
	if len(snap.Names) != 2 || sess.State().Len() != 2 {
		t.Fatalf("out-of-range remove changed state: %q", snap.Names)
	}

	kinds := sink.kinds()
	if len(kinds) != 5 {
		t.Fatalf("expected 5 change events, got %v", kinds)
	}
	for _, kind := range kinds {
		if kind != schema.ChangeNames {
			t.Fatalf("unexpected event kind %q", kind)
		}
	}
	if last := sink.last(); last.Snapshot.Session != sess.ID() || !reflect.DeepEqual(last.Snapshot.Names, []string{"Alice", "Carol"}) {
		t.Fatalf("unexpected snapshot %+v", last.Snapshot)
	}
}

func TestSessionBlankInputDoesNotPublish(t *testing.T) {
	sink := &recordingSink{}
	reg := NewRegistry(RegistryDeps{EventSink: sink})
	sess := reg.Create(context.Background())
	snap, added, err := sess.AddName(context.Background(), "   ")
	if err != nil || added || len(snap.Names) != 0 {
		t.Fatalf("expected blank input to be skipped, added=%v err=%v", added, err)
	}
	if len(sink.kinds()) != 0 {
		t.Fatalf("blank input published %v", sink.kinds())
	}
}

func TestSessionFlipIsIndependentOfNames(t *testing.T) {
	sink := &recordingSink{}
	obs := &recordingObserver{}
	reg := NewRegistry(RegistryDeps{EventSink: sink, Observer: obs})
	sess := reg.Create(context.Background())
	ctx := context.Background()

	if _, _, err := sess.AddName(ctx, "Alice"); err != nil {
		t.Fatalf("add: %v", err)
	}
	snap := sess.Snapshot()
	if !snap.Flag || snap.FlagText != FlagTrueText {
		t.Fatalf("unexpected initial flag %+v", snap)
	}
	snap, err := sess.Flip(ctx)
	if err != nil {
		t.Fatalf("flip: %v", err)
	}
	if snap.Flag || snap.FlagText != FlagFalseText {
		t.Fatalf("unexpected flag after flip %+v", snap)
	}
	if !reflect.DeepEqual(snap.Names, []string{"Alice"}) {
		t.Fatalf("flip changed names: %q", snap.Names)
	}
	if kinds := sink.kinds(); kinds[len(kinds)-1] != schema.ChangeFlag {
		t.Fatalf("expected flag event, got %v", kinds)
	}
	if !reflect.DeepEqual(obs.flips, []bool{false}) {
		t.Fatalf("unexpected flip observations %v", obs.flips)
	}
	if len(obs.calls) != 1 || obs.calls[0].kind != KindAddName {
		t.Fatalf("unexpected dispatch observations %+v", obs.calls)
	}
}

func TestSessionSubscribe(t *testing.T) {
	reg := NewRegistry(RegistryDeps{})
	sess := reg.Create(context.Background())
	calls := 0
	unsubscribe := sess.Subscribe(func() { calls++ })
	_, _, _ = sess.AddName(context.Background(), "Alice")
	unsubscribe()
	_, _, _ = sess.AddName(context.Background(), "Bob")
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestSessionClosedRejectsOperations(t *testing.T) {
	sink := &recordingSink{}
	reg := NewRegistry(RegistryDeps{EventSink: sink})
	ctx := context.Background()
	sess := reg.Create(ctx)
	if !reg.Close(ctx, sess.ID()) {
		t.Fatalf("expected close to succeed")
	}
	if !sess.Closed() {
		t.Fatalf("expected session to report closed")
	}
	if sink.last().Kind != schema.ChangeClosed {
		t.Fatalf("expected closed event, got %v", sink.kinds())
	}
	if _, _, err := sess.AddName(ctx, "Alice"); !errors.Is(err, schema.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if _, _, err := sess.RemoveName(ctx, 0); !errors.Is(err, schema.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
	if _, err := sess.Flip(ctx); !errors.Is(err, schema.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestSessionConcurrentAddsReturnOwnSnapshot(t *testing.T) {
	reg := NewRegistry(RegistryDeps{})
	sess := reg.Create(context.Background())
	const n = 32
	lengths := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("name-%d", i)
			snap, _, err := sess.AddName(context.Background(), name)
			if err != nil {
				t.Errorf("add %q: %v", name, err)
				return
			}
			if snap.Names[len(snap.Names)-1] != name {
				t.Errorf("add %q returned a snapshot ending in %q", name, snap.Names[len(snap.Names)-1])
			}
			lengths[i] = len(snap.Names)
		}(i)
	}
	wg.Wait()
	if got := sess.State().Len(); got != n {
		t.Fatalf("expected %d names, got %d", n, got)
	}
	seen := make(map[int]bool, n)
	for _, l := range lengths {
		if seen[l] {
			t.Fatalf("two adds returned the same list length %d", l)
		}
		seen[l] = true
	}
}
