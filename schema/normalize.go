package schema

import (
	"strconv"
	"strings"
)

// ValidateSessionID checks that a session id only contains [a-z0-9-].
func ValidateSessionID(id SessionID) error {
	if id == "" || len(id) > 64 {
		return ErrInvalidSession
	}
	for _, r := range string(id) {
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '-' {
			continue
		}
		return ErrInvalidSession
	}
	return nil
}

// ParseIndex parses a list position. Any integer is accepted, including
// negative and out-of-range values; only non-integers are rejected.
func ParseIndex(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, ErrInvalidIndex
	}
	idx, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, ErrInvalidIndex
	}
	return idx, nil
}
