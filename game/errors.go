package game

import "errors"

// errDeckMissing asks the caller to draw a word deck and try again.
var errDeckMissing = errors.New("deck-missing")

// Session store errors
var (
	ErrSessionNotFound = errors.New("session-not-found")
	ErrLockTimeout     = errors.New("lock-timeout")
	ErrCorruptSession  = errors.New("corrupt-session")
)

// Lobby errors
var (
	ErrLobbyNotFound       = errors.New("lobby-not-found")
	ErrLobbyAlreadyStarted = errors.New("lobby-already-started")
	ErrWrongPassword       = errors.New("wrong-password")
	ErrLobbyFull           = errors.New("lobby-full")
	ErrRosterSizeInvalid   = errors.New("roster-size-invalid")
	ErrNotHost             = errors.New("not-host")
	ErrCodeSpaceExhausted  = errors.New("code-space-exhausted")
	ErrAlreadyInSession    = errors.New("already-in-session")
)

// ErrNotEnoughPlayers is returned when a game is started outside the roster bounds.
var ErrNotEnoughPlayers = ErrRosterSizeInvalid

// Turn errors
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotInSession = errors.New("not-in-session")
)
