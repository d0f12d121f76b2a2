package app

import (
	"context"

	"github.com/cimillas/room-booking/internal/domain"
)

// findConflicts returns the occupying reservations on roomID/date that
// overlap [start, end), skipping excludeID. Callers that act on the result
// must hold the (roomID, date) partition lock.
func (s *ReservationService) findConflicts(ctx context.Context, roomID string, date domain.Date, start, end domain.TimeOfDay, excludeID string) ([]domain.Reservation, error) {
	occupying, err := s.repo.ListOccupying(ctx, roomID, date)
	if err != nil {
		return nil, err
	}
	var conflicts []domain.Reservation
	for _, r := range occupying {
		if r.ID == excludeID || !r.State.Occupying() {
			continue
		}
		if domain.Overlaps(start, end, r.Start, r.End) {
			conflicts = append(conflicts, r)
		}
	}
	return conflicts, nil
}

// ListConflicts reports which approved or active reservations would block a
// booking of roomID for [start, end) on date. The answer is a snapshot.
func (s *ReservationService) ListConflicts(ctx context.Context, roomID string, date domain.Date, start, end domain.TimeOfDay) ([]domain.Reservation, error) {
	if roomID == "" {
		return nil, domain.NewValidationError("room_id", "required")
	}
	if err := domain.ValidateInterval(start, end); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.findConflicts(ctx, roomID, date, start, end, "")
}
