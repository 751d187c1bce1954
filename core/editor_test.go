package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestSubmitNameSkipsBlankInput(t *testing.T) {
	store := NewStore()
	calls := 0
	store.Subscribe(func() { calls++ })
	for _, input := range []string{"", " ", "\t\n", "   "} {
		added, err := SubmitName(store, input)
		if err != nil {
			t.Fatalf("submit %q: %v", input, err)
		}
		if added {
			t.Fatalf("submit %q: expected skip", input)
		}
	}
	if calls != 0 {
		t.Fatalf("blank input dispatched %d times", calls)
	}
}

func TestSubmitNameDispatchesInputAsTyped(t *testing.T) {
	store := NewStore()
	added, err := SubmitName(store, "  Alice ")
	if err != nil || !added {
		t.Fatalf("submit: added=%v err=%v", added, err)
	}
	if got := store.State().Names(); !reflect.DeepEqual(got, []string{"  Alice "}) {
		t.Fatalf("got %q", got)
	}
}

func TestSubmitNamePropagatesDispatchError(t *testing.T) {
	boom := errors.New("boom")
	added, err := SubmitName(failingDispatcher{err: boom}, "Alice")
	if added || !errors.Is(err, boom) {
		t.Fatalf("expected dispatch error, got added=%v err=%v", added, err)
	}
}

func TestRemoveNameDispatches(t *testing.T) {
	store := NewStore(WithInitialState(StateOf("Alice", "Bob")))
	if err := RemoveName(store, 0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := store.State().Names(); !reflect.DeepEqual(got, []string{"Bob"}) {
		t.Fatalf("got %q", got)
	}
}

type failingDispatcher struct {
	err error
}

func (f failingDispatcher) Dispatch(Action) error {
	return f.err
}
