package domain

import (
	"errors"
	"fmt"
)

// Failure kinds shared by the campaign/lead/call-log modules.
//
// Rules:
// - Services wrap these with context via fmt.Errorf("%w: ...") and return them
//   to the caller; nothing retries internally.
// - A rejected operation performs no partial mutation.
// - The HTTP layer matches with errors.Is and maps each kind to a 4xx.

var (
	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition means a state-machine edge is not permitted,
	// including any attempt to move out of a terminal state.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrPreconditionFailed means a named business rule is unmet
	// (e.g. starting a campaign with no voice selected).
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrConflictingUpdate means a concurrent mutation was detected and
	// rejected rather than silently overwritten.
	ErrConflictingUpdate = errors.New("conflicting update")
)

// NotFoundf wraps ErrNotFound naming the missing entity.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// InvalidTransitionf wraps ErrInvalidTransition with the rejected edge.
func InvalidTransitionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, fmt.Sprintf(format, args...))
}

// PreconditionFailedf wraps ErrPreconditionFailed naming the unmet condition.
func PreconditionFailedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPreconditionFailed, fmt.Sprintf(format, args...))
}
