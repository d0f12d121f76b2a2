package app

import (
	"context"
	"time"

	"github.com/cimillas/room-booking/internal/domain"
)

// RoomStatus projects the status of roomID at now. It is recomputed on every
// call; callers may cache the value but it is only a snapshot.
func (s *ReservationService) RoomStatus(ctx context.Context, roomID string, now time.Time) (domain.RoomStatus, error) {
	if roomID == "" {
		return "", domain.ErrInvalidID
	}
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return "", err
	}
	if room.Maintenance || room.Disabled {
		return domain.RoomStatusMaintenance, nil
	}
	active, err := s.repo.ListReservations(ctx, domain.ReservationFilter{
		RoomID: roomID,
		Date:   domain.DateOf(now, s.loc),
		States: []domain.State{domain.StateActive},
	})
	if err != nil {
		return "", err
	}
	return domain.ProjectStatus(room, active, now, s.loc), nil
}
