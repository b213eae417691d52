package engine

import "errors"

var (
	// ErrInvalidTurn marks turns rejected before the decision machine runs.
	ErrInvalidTurn = errors.New("invalid turn")

	// ErrScoringUnavailable marks a scorer that failed to load or raised
	// during a turn. The turn fails; it is never defaulted to no-escalate.
	ErrScoringUnavailable = errors.New("scoring unavailable")
)
