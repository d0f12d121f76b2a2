// Package notify delivers reservation events to external collaborators.
// Delivery is best effort: a failing sink never affects a committed transition.
package notify

import (
	"context"
	"errors"
	"log"

	"github.com/cimillas/room-booking/internal/domain"
)

type Sink interface {
	Publish(ctx context.Context, event domain.Event) error
}

// Multi fans an event out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes one line per event.
type LogSink struct {
	Logger *log.Logger
}

func (l LogSink) Publish(_ context.Context, event domain.Event) error {
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("event type=%s reservation=%s room=%s from=%s to=%s actor=%s room_status=%s",
		event.Type, event.ReservationID, event.RoomID, event.From, event.To, event.ActorID, event.RoomStatus)
	return nil
}
