package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomDisabled        = errors.New("room disabled")
	ErrRoomInUse           = errors.New("room has open reservations")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrActorNotFound       = errors.New("actor not found")
	ErrInvalidID           = errors.New("invalid id")
	ErrStaleReservation    = errors.New("reservation was modified concurrently")
)

// Category sentinels. Every typed error below unwraps to one of these.
var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("reservation conflict")
	ErrPermission        = errors.New("permission denied")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError lists the occupying reservations that overlap the candidate.
type ConflictError struct {
	RoomID    string
	Date      Date
	Conflicts []Reservation
}

func (e *ConflictError) Error() string {
	ids := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		ids = append(ids, c.ID)
	}
	return fmt.Sprintf("room %s on %s overlaps %s", e.RoomID, e.Date, strings.Join(ids, ", "))
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// PermissionError reports an actor lacking the capability for an action.
type PermissionError struct {
	ActorID string
	Action  string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("actor %s may not %s", e.ActorID, e.Action)
}

func (e *PermissionError) Unwrap() error { return ErrPermission }

// InvalidTransitionError names the current state and the attempted target.
type InvalidTransitionError struct {
	From   State
	To     State
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("cannot move reservation from %s to %s", e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }
