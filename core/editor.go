package core

import "strings"

// Dispatcher is the part of Store consumers need to request changes.
type Dispatcher interface {
	Dispatch(action Action) error
}

// SubmitName is the add-name gate used by every consumer: blank input (after
// trimming) is dropped without dispatching, anything else is dispatched
// exactly as typed. It reports whether an action was dispatched.
func SubmitName(d Dispatcher, input string) (bool, error) {
	if strings.TrimSpace(input) == "" {
		return false, nil
	}
	if err := d.Dispatch(NewAddName(input)); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveName requests removal of the name at index.
func RemoveName(d Dispatcher, index int) error {
	return d.Dispatch(NewRemoveNameAt(index))
}
