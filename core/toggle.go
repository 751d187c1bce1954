package core

const (
	// FlagTrueText is shown while the toggle is on.
	FlagTrueText = "Show this if boolean is true."
	// FlagFalseText is shown while the toggle is off.
	FlagFalseText = "Show this if boolean is false."
)

// Toggle is the boolean view. It keeps its own value and never touches a Store.
type Toggle struct {
	value bool
}

// NewToggle returns a toggle that starts on.
func NewToggle() *Toggle {
	return &Toggle{value: true}
}

// Flip inverts the value and returns the new one.
func (t *Toggle) Flip() bool {
	t.value = !t.value
	return t.value
}

// Value returns the current value.
func (t *Toggle) Value() bool {
	return t.value
}

// Text returns the paragraph matching the current value.
func (t *Toggle) Text() string {
	return FlagText(t.value)
}

// FlagText returns the paragraph for value.
func FlagText(value bool) string {
	if value {
		return FlagTrueText
	}
	return FlagFalseText
}
