package domain

import "errors"

// Error taxonomy for the turn and action surface. Logical violations are
// never retried; only ErrStoreTimeout is a candidate for retry.
var (
	// ErrTurnViolation means the caller is not the authorized actor.
	ErrTurnViolation = errors.New("not the acting player")
	// ErrSessionNotRunning means the session is not in the running status.
	ErrSessionNotRunning = errors.New("session not running")

	// Illegal transitions.
	ErrNotAdjacent     = errors.New("target cell not adjacent")
	ErrImmediateRepeat = errors.New("immediate repeat of previous cell")
	ErrMoveRequired    = errors.New("must move before acting")
	ErrAlreadyActed    = errors.New("already acted this turn")
	ErrWrongCell       = errors.New("action does not match current cell")
	ErrUnknownAction   = errors.New("unknown action type")

	// Resource exhaustion.
	ErrDeckExhausted     = errors.New("deck and discard pool exhausted")
	ErrNoResolveTokens   = errors.New("no resolve tokens left")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTurn signals a duplicate-turn defect: more closed turn
	// records for a day than the session has players. Fatal, non-retryable.
	ErrDuplicateTurn = errors.New("duplicate turn detected")

	// ErrInteractionNotFound means the interaction already settled or never
	// existed.
	ErrInteractionNotFound = errors.New("interaction not found")

	// ErrStoreTimeout wraps transient store contention or timeouts.
	ErrStoreTimeout = errors.New("store timeout")

	ErrSessionNotFound = errors.New("session not found")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrCardNotFound    = errors.New("card not found")
)

// Retryable reports whether the error is a transient store failure that a
// caller may retry with backoff.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreTimeout)
}
