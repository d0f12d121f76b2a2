package domain

import (
	"strings"
	"time"
)

type State string

const (
	StatePending   State = "pending"
	StateApproved  State = "approved"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateRejected  State = "rejected"
	StateCancelled State = "cancelled"
)

// OccupyingStates count toward conflict detection.
var OccupyingStates = []State{StateApproved, StateActive}

// OpenStates are the non-terminal states.
var OpenStates = []State{StatePending, StateApproved, StateActive}

var transitions = map[State][]State{
	StatePending:  {StateApproved, StateRejected, StateCancelled},
	StateApproved: {StateActive, StateCompleted, StateCancelled},
	StateActive:   {StateCompleted},
}

func (s State) Valid() bool {
	switch s {
	case StatePending, StateApproved, StateActive, StateCompleted, StateRejected, StateCancelled:
		return true
	}
	return false
}

func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

func (s State) Occupying() bool {
	return s == StateApproved || s == StateActive
}

// CanTransition reports whether the state machine has an edge from s to to.
func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type RequesterCategory string

const (
	CategoryEmployee RequesterCategory = "employee"
	CategoryGuest    RequesterCategory = "guest"
	CategoryIntern   RequesterCategory = "intern"
)

func (c RequesterCategory) Valid() bool {
	switch c {
	case CategoryEmployee, CategoryGuest, CategoryIntern:
		return true
	}
	return false
}

// Reservation is a request to occupy a room for [Start, End) on Date.
type Reservation struct {
	ID                string
	RoomID            string
	RequesterID       string
	RequesterName     string
	RequesterEmail    string
	RequesterPhone    string
	RequesterCategory RequesterCategory
	Date              Date
	Start             TimeOfDay
	End               TimeOfDay
	Purpose           string
	Notes             string
	Attendees         int
	State             State
	// Version increments on every committed change.
	Version int

	CreatedBy       string
	CreatedAt       time.Time
	ApprovedBy      string
	ApprovedAt      *time.Time
	RejectedBy      string
	RejectedAt      *time.Time
	RejectionReason string
	ActivatedAt     *time.Time
	CompletedBy     string
	CompletedAt     *time.Time
	CancelledBy     string
	CancelledAt     *time.Time
}

func (r Reservation) StartAt(loc *time.Location) time.Time { return r.Date.At(r.Start, loc) }

func (r Reservation) EndAt(loc *time.Location) time.Time { return r.Date.At(r.End, loc) }

// Overlaps reports whether r and o share a room and day and their intervals intersect.
func (r Reservation) Overlaps(o Reservation) bool {
	if r.RoomID != o.RoomID || r.Date != o.Date {
		return false
	}
	return Overlaps(r.Start, r.End, o.Start, o.End)
}

// HistoryEntry is one row of a reservation's audit trail.
type HistoryEntry struct {
	ReservationID string
	From          State
	To            State
	ActorID       string
	Note          string
	At            time.Time
}

func (r Reservation) guard(to State) error {
	if !r.State.CanTransition(to) {
		return &InvalidTransitionError{From: r.State, To: to}
	}
	return nil
}

func (r Reservation) Approve(by Actor, at time.Time) (Reservation, error) {
	if err := r.guard(StateApproved); err != nil {
		return r, err
	}
	r.State = StateApproved
	r.ApprovedBy = by.ID
	r.ApprovedAt = &at
	return r, nil
}

func (r Reservation) Reject(by Actor, reason string, at time.Time) (Reservation, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return r, NewValidationError("reason", "required")
	}
	if err := r.guard(StateRejected); err != nil {
		return r, err
	}
	r.State = StateRejected
	r.RejectedBy = by.ID
	r.RejectedAt = &at
	r.RejectionReason = reason
	return r, nil
}

// Activate marks an approved reservation as occupying the room. Only valid
// while at lies inside the booked window.
func (r Reservation) Activate(at time.Time, loc *time.Location) (Reservation, error) {
	if err := r.guard(StateActive); err != nil {
		return r, err
	}
	if at.Before(r.StartAt(loc)) || !at.Before(r.EndAt(loc)) {
		return r, &InvalidTransitionError{From: r.State, To: StateActive, Reason: "outside the booked window"}
	}
	r.State = StateActive
	r.ActivatedAt = &at
	return r, nil
}

// Complete returns the room. An approved reservation can only complete
// once its end time has passed.
func (r Reservation) Complete(by Actor, at time.Time, loc *time.Location) (Reservation, error) {
	if err := r.guard(StateCompleted); err != nil {
		return r, err
	}
	if r.State == StateApproved && at.Before(r.EndAt(loc)) {
		return r, &InvalidTransitionError{From: r.State, To: StateCompleted, Reason: "reservation has not ended"}
	}
	r.State = StateCompleted
	r.CompletedBy = by.ID
	r.CompletedAt = &at
	return r, nil
}

// Cancel withdraws a pending or approved reservation before it starts.
func (r Reservation) Cancel(by Actor, at time.Time, loc *time.Location) (Reservation, error) {
	if err := r.guard(StateCancelled); err != nil {
		return r, err
	}
	if !at.Before(r.StartAt(loc)) {
		return r, &InvalidTransitionError{From: r.State, To: StateCancelled, Reason: "start time has passed"}
	}
	r.State = StateCancelled
	r.CancelledBy = by.ID
	r.CancelledAt = &at
	return r, nil
}
