package domain

import "time"

// Room is a bookable shared resource.
type Room struct {
	ID          string
	Name        string
	Capacity    int
	Location    string
	Facilities  []string
	Maintenance bool
	// Disabled rooms are soft-deleted: kept for history, closed to new bookings.
	Disabled  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "available"
	RoomStatusOccupied    RoomStatus = "occupied"
	RoomStatusMaintenance RoomStatus = "maintenance"
)

// ProjectStatus derives the displayed status of room at now from the
// reservations held on it. The maintenance override wins over any booking.
func ProjectStatus(room Room, reservations []Reservation, now time.Time, loc *time.Location) RoomStatus {
	if room.Maintenance || room.Disabled {
		return RoomStatusMaintenance
	}
	today := DateOf(now, loc)
	minute := TimeOfDayOf(now, loc)
	for _, r := range reservations {
		if r.RoomID != room.ID || r.State != StateActive || r.Date != today {
			continue
		}
		if Contains(r.Start, r.End, minute) {
			return RoomStatusOccupied
		}
	}
	return RoomStatusAvailable
}
