package domain

import "time"

type EventType string

const (
	EventReservationSubmitted EventType = "reservation.submitted"
	EventReservationApproved  EventType = "reservation.approved"
	EventReservationRejected  EventType = "reservation.rejected"
	EventReservationActivated EventType = "reservation.activated"
	EventReservationCompleted EventType = "reservation.completed"
	EventReservationCancelled EventType = "reservation.cancelled"
)

// EventTypeFor maps a target state to the event announcing it.
func EventTypeFor(to State) EventType {
	switch to {
	case StateApproved:
		return EventReservationApproved
	case StateRejected:
		return EventReservationRejected
	case StateActive:
		return EventReservationActivated
	case StateCompleted:
		return EventReservationCompleted
	case StateCancelled:
		return EventReservationCancelled
	default:
		return EventReservationSubmitted
	}
}

// Event is emitted after a transition commits.
type Event struct {
	Type          EventType  `json:"type"`
	ReservationID string     `json:"reservation_id"`
	RoomID        string     `json:"room_id"`
	RequesterID   string     `json:"requester_id"`
	From          State      `json:"from,omitempty"`
	To            State      `json:"to"`
	ActorID       string     `json:"actor_id"`
	RoomStatus    RoomStatus `json:"room_status,omitempty"`
	At            time.Time  `json:"at"`
}
