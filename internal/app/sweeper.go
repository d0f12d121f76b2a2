package app

import (
	"context"
	"errors"
	"time"

	"github.com/cimillas/room-booking/internal/domain"
)

// SweepResult counts the transitions made by one sweep.
type SweepResult struct {
	Activated int
	Completed int
}

// Sweep activates approved reservations whose window has begun and completes
// occupying reservations whose window has ended. Reservations that moved
// underneath the sweep are skipped.
func (s *ReservationService) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()
	due, err := s.repo.ListReservations(ctx, domain.ReservationFilter{
		DateTo: domain.DateOf(now, s.loc),
		States: domain.OccupyingStates,
	})
	if err != nil {
		return SweepResult{}, err
	}

	var result SweepResult
	for _, r := range due {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		switch {
		case !now.Before(r.EndAt(s.loc)):
			_, err = s.transition(ctx, r.ID, domain.SystemActor, false, "window elapsed", func(_ context.Context, cur domain.Reservation, at time.Time) (domain.Reservation, error) {
				return cur.Complete(domain.SystemActor, at, s.loc)
			})
			if err == nil {
				result.Completed++
			}
		case r.State == domain.StateApproved && !now.Before(r.StartAt(s.loc)):
			_, err = s.transition(ctx, r.ID, domain.SystemActor, false, "window started", func(_ context.Context, cur domain.Reservation, at time.Time) (domain.Reservation, error) {
				return cur.Activate(at, s.loc)
			})
			if err == nil {
				result.Activated++
			}
		default:
			continue
		}
		if err != nil && !errors.Is(err, domain.ErrInvalidTransition) && !errors.Is(err, domain.ErrStaleReservation) {
			s.logger.Printf("WARN: sweep reservation=%s: %v", r.ID, err)
		}
	}
	return result, nil
}

// StartSweeper runs Sweep every interval until ctx is cancelled. It is the
// only background writer.
func (s *ReservationService) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				res, err := s.Sweep(ctx)
				if err != nil {
					s.logger.Printf("WARN: sweep failed: %v", err)
					continue
				}
				if res.Activated > 0 || res.Completed > 0 {
					s.logger.Printf("sweep activated=%d completed=%d", res.Activated, res.Completed)
				}
			}
		}
	}()
}
