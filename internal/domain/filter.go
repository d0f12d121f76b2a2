package domain

// ReservationFilter narrows reservation listings. Zero fields match everything.
type ReservationFilter struct {
	RoomID      string
	RequesterID string
	Date        Date
	// DateTo is an inclusive upper bound on Date.
	DateTo Date
	States []State
}

func (f ReservationFilter) Match(r Reservation) bool {
	if f.RoomID != "" && r.RoomID != f.RoomID {
		return false
	}
	if f.RequesterID != "" && r.RequesterID != f.RequesterID {
		return false
	}
	if f.Date != "" && r.Date != f.Date {
		return false
	}
	if f.DateTo != "" && r.Date > f.DateTo {
		return false
	}
	if len(f.States) == 0 {
		return true
	}
	for _, s := range f.States {
		if r.State == s {
			return true
		}
	}
	return false
}
