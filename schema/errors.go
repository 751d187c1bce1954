package schema

import "errors"

var (
	// ErrReentrantDispatch indicates Dispatch was called while a dispatch was already running.
	ErrReentrantDispatch = errors.New("dispatch called while dispatching")
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidIndex indicates a list position that is not an integer.
	ErrInvalidIndex = errors.New("invalid index")
	// ErrInvalidSession indicates a malformed session identifier.
	ErrInvalidSession = errors.New("invalid session")
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed indicates the session was closed while in use.
	ErrSessionClosed = errors.New("session closed")
)

var (
	// ErrUnknownCommand indicates a slash command that is not recognized.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrUsage indicates a slash command with missing or malformed arguments.
	ErrUsage = errors.New("usage")
)
