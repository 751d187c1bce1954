package schema

// SessionID identifies one consumer session (an SSH connection or an HTTP cookie session).
type SessionID string

// Snapshot is the transport view of a session: the name list plus the toggle.
type Snapshot struct {
	Session  SessionID `json:"session"`
	Names    []string  `json:"names"`
	Flag     bool      `json:"flag"`
	FlagText string    `json:"flag_text"`
}

// ChangeKind describes what changed in a session.
type ChangeKind string

const (
	// ChangeNames is emitted after every store dispatch.
	ChangeNames ChangeKind = "names"
	// ChangeFlag is emitted after the toggle flips.
	ChangeFlag ChangeKind = "flag"
	// ChangeClosed is emitted once when the session is closed.
	ChangeClosed ChangeKind = "closed"
)

// ChangeEvent announces a session change to out-of-process consumers.
type ChangeEvent struct {
	Kind     ChangeKind
	Snapshot Snapshot
}
