package core

// State is the name list. It is immutable: the reducer always builds a new
// backing array and readers only get copies.
type State struct {
	names []string
}

// InitialState returns the empty list. The zero State is equivalent.
func InitialState() State {
	return State{names: []string{}}
}

// StateOf builds a State holding a copy of names.
func StateOf(names ...string) State {
	out := make([]string, len(names))
	copy(out, names)
	return State{names: out}
}

// Names returns a copy of the list.
func (s State) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of names.
func (s State) Len() int {
	return len(s.names)
}

// At returns the name at position i.
func (s State) At(i int) (string, bool) {
	if i < 0 || i >= len(s.names) {
		return "", false
	}
	return s.names[i], true
}

// Equal reports whether both states hold the same names in the same order.
func (s State) Equal(other State) bool {
	if len(s.names) != len(other.names) {
		return false
	}
	for i := range s.names {
		if s.names[i] != other.names[i] {
			return false
		}
	}
	return true
}

// Reducer computes the next state from the current state and an action.
type Reducer func(State, Action) State

// Reduce is the name list reducer. It never mutates state and never panics;
// actions it does not know return state as is.
func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case AddName:
		next := make([]string, len(state.names), len(state.names)+1)
		copy(next, state.names)
		return State{names: append(next, a.Value)}
	case RemoveNameAt:
		next := make([]string, 0, len(state.names))
		for i, name := range state.names {
			if i != a.Index {
				next = append(next, name)
			}
		}
		return State{names: next}
	default:
		return state
	}
}
