package services

import "errors"

// Error taxonomy for the match lifecycle. Conditional-update races resolve
// locally: the losing writer re-reads the row and classifies the outcome with
// one of these sentinels instead of surfacing a raw store error.
var (
	// ErrNoCandidate means no other searching user was available. Not a
	// failure; the caller is expected to retry or poll with backoff.
	ErrNoCandidate = errors.New("no searching candidate available")

	// ErrProfileNotFound means the referenced user has no profile row.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrMatchNotFound means the referenced match does not exist.
	ErrMatchNotFound = errors.New("match not found")

	// ErrExpired means the 120-second anonymous window elapsed before the
	// operation landed. Non-retryable for that match.
	ErrExpired = errors.New("anonymous window has expired")

	// ErrUnauthorized means the caller is not a participant of the match.
	// Never expected in normal operation; call sites log it as suspicious.
	ErrUnauthorized = errors.New("user is not a participant of this match")

	// ErrAlreadyTerminal means the match already reached revealed,
	// ended_by_user or ended_by_timer. A benign race: the client's view was
	// stale and should re-fetch rather than retry the write.
	ErrAlreadyTerminal = errors.New("match already reached a terminal status")

	// ErrStoreUnavailable wraps DynamoDB failures. Retryable with backoff.
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrConditionFailed is the internal signal that a guarded write lost
	// its condition check. Callers classify it into one of the sentinels
	// above by re-reading the row; it never crosses the service boundary.
	ErrConditionFailed = errors.New("conditional update rejected")

	// ErrItemNotFound is returned by DynamoService.GetItem for a missing row.
	ErrItemNotFound = errors.New("item not found")
)
