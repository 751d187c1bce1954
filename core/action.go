package core

import "fmt"

// ActionKind tags an action for logs, metrics and transports.
type ActionKind string

const (
	// KindAddName tags AddName actions.
	KindAddName ActionKind = "add_name"
	// KindRemoveNameAt tags RemoveNameAt actions.
	KindRemoveNameAt ActionKind = "remove_name_at"
)

// Action describes an intended change to the name list. The set of actions
// is closed: only types in this package implement it.
type Action interface {
	Kind() ActionKind
	isAction()
}

// AddName appends Value to the end of the list.
type AddName struct {
	Value string
}

// Kind implements Action.
func (AddName) Kind() ActionKind { return KindAddName }

func (AddName) isAction() {}

func (a AddName) String() string {
	return fmt.Sprintf("%s(%q)", KindAddName, a.Value)
}

// RemoveNameAt removes the element at the zero-based position Index.
// Positions outside the list are ignored by the reducer.
type RemoveNameAt struct {
	Index int
}

// Kind implements Action.
func (RemoveNameAt) Kind() ActionKind { return KindRemoveNameAt }

func (RemoveNameAt) isAction() {}

func (a RemoveNameAt) String() string {
	return fmt.Sprintf("%s(%d)", KindRemoveNameAt, a.Index)
}

// NewAddName returns an AddName action. The name is used as given.
func NewAddName(name string) Action {
	return AddName{Value: name}
}

// NewRemoveNameAt returns a RemoveNameAt action. The index is not bounds checked.
func NewRemoveNameAt(index int) Action {
	return RemoveNameAt{Index: index}
}

func actionKind(action Action) ActionKind {
	if action == nil {
		return ""
	}
	return action.Kind()
}
