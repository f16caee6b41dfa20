package tickets

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrDuplicateActiveTicket gets returned when the owner already has
	// an OPEN or CLAIMED ticket on the guild
	ErrDuplicateActiveTicket = errors.New("owner already has an active ticket")

	// ErrInvalidTransition gets returned when the requested lifecycle
	// change is not legal from the ticket's current status
	ErrInvalidTransition = errors.New("invalid ticket transition")

	// ErrUnauthorized gets returned when the acting user lacks the
	// staff capability the operation requires
	ErrUnauthorized = errors.New("missing staff capability")

	// ErrTicketNotFound gets returned when no ticket matches the query
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrNotConfigured gets returned when the guild has not enabled the
	// support desk or required settings are missing
	ErrNotConfigured = errors.New("support desk is not configured for this guild")
)

// ValidationError reports bad user input. It is reported to the
// invoking user and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func IsValidationError(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}
