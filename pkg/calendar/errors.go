package calendar

import (
	"errors"
	"fmt"
)

var (
	// ErrEventNotFound is returned when an event does not exist, is owned by
	// a different user, or has been soft-deleted. The three cases are
	// deliberately indistinguishable so callers cannot probe for the
	// existence of other users' events.
	ErrEventNotFound = errors.New("calendar event not found")

	// ErrInvalidEventID is returned for syntactically malformed event
	// identifiers, before any storage lookup happens.
	ErrInvalidEventID = errors.New("invalid event identifier")

	// ErrEventConflict is returned when an insert would overwrite an existing
	// UID. Under normal UID generation this indicates a storage-layer bug.
	ErrEventConflict = errors.New("calendar event already exists")
)

// ValidationError describes a malformed or semantically invalid input field.
// The caller can recover by resubmitting corrected input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
