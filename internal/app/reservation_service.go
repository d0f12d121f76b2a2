package app

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/cimillas/room-booking/internal/clock"
	"github.com/cimillas/room-booking/internal/domain"
)

type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// LockPartition serializes callers on (roomID, date) until the surrounding
	// transaction ends.
	LockPartition(ctx context.Context, roomID string, date domain.Date) error
	GetRoom(ctx context.Context, roomID string) (domain.Room, error)
	// GetRoomForUpdate row-locks the room so it cannot be deleted before the
	// surrounding transaction ends.
	GetRoomForUpdate(ctx context.Context, roomID string) (domain.Room, error)
	GetReservation(ctx context.Context, id string) (domain.Reservation, error)
	GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error)
	ListOccupying(ctx context.Context, roomID string, date domain.Date) ([]domain.Reservation, error)
	ListReservations(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error)
	CreateReservation(ctx context.Context, r domain.Reservation) error
	// UpdateReservation writes r if the stored version still equals r.Version
	// and bumps the stored version; otherwise it returns ErrStaleReservation.
	UpdateReservation(ctx context.Context, r domain.Reservation) error
	AppendHistory(ctx context.Context, entry domain.HistoryEntry) error
	ListHistory(ctx context.Context, reservationID string) ([]domain.HistoryEntry, error)
}

// EventSink receives an event after every committed transition.
type EventSink interface {
	Publish(ctx context.Context, event domain.Event) error
}

type ReservationService struct {
	repo           ReservationRepository
	clock          clock.Clock
	loc            *time.Location
	sink           EventSink
	logger         *log.Logger
	publishTimeout time.Duration
}

const defaultPublishTimeout = 2 * time.Second

func NewReservationService(repo ReservationRepository, clk clock.Clock, opts ...ReservationServiceOption) *ReservationService {
	svc := &ReservationService{
		repo:           repo,
		clock:          clk,
		loc:            time.UTC,
		logger:         log.Default(),
		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReservationServiceOption func(*ReservationService)

// WithLocation sets the zone in which reservation dates and times are read.
func WithLocation(loc *time.Location) ReservationServiceOption {
	return func(s *ReservationService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithEventSink(sink EventSink) ReservationServiceOption {
	return func(s *ReservationService) {
		s.sink = sink
	}
}

// WithPublishTimeout bounds how long a transition waits on the event sink
// after commit.
func WithPublishTimeout(d time.Duration) ReservationServiceOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

func WithLogger(logger *log.Logger) ReservationServiceOption {
	return func(s *ReservationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type SubmitInput struct {
	RoomID            string
	RequesterName     string
	RequesterEmail    string
	RequesterPhone    string
	RequesterCategory string
	Date              string
	StartTime         string
	EndTime           string
	Purpose           string
	Notes             string
	Attendees         int
}

func (s *ReservationService) parseSubmit(actor domain.Actor, in SubmitInput) (domain.Reservation, error) {
	if in.RoomID == "" {
		return domain.Reservation{}, domain.NewValidationError("room_id", "required")
	}
	name := strings.TrimSpace(in.RequesterName)
	if name == "" {
		name = actor.Name
	}
	if name == "" {
		return domain.Reservation{}, domain.NewValidationError("requester_name", "required")
	}
	category := domain.RequesterCategory(in.RequesterCategory)
	if !category.Valid() {
		return domain.Reservation{}, domain.NewValidationError("requester_category", "must be employee, guest or intern")
	}
	date, err := domain.ParseDate(in.Date)
	if err != nil {
		return domain.Reservation{}, err
	}
	start, err := domain.ParseTimeOfDay(in.StartTime)
	if err != nil {
		return domain.Reservation{}, domain.NewValidationError("start_time", "expected HH:MM")
	}
	end, err := domain.ParseTimeOfDay(in.EndTime)
	if err != nil {
		return domain.Reservation{}, domain.NewValidationError("end_time", "expected HH:MM")
	}
	if err := domain.ValidateInterval(start, end); err != nil {
		return domain.Reservation{}, err
	}
	purpose := strings.TrimSpace(in.Purpose)
	if purpose == "" {
		return domain.Reservation{}, domain.NewValidationError("purpose", "required")
	}
	if in.Attendees < 0 {
		return domain.Reservation{}, domain.NewValidationError("attendees", "must not be negative")
	}

	return domain.Reservation{
		RoomID:            in.RoomID,
		RequesterID:       actor.ID,
		RequesterName:     name,
		RequesterEmail:    strings.TrimSpace(in.RequesterEmail),
		RequesterPhone:    strings.TrimSpace(in.RequesterPhone),
		RequesterCategory: category,
		Date:              date,
		Start:             start,
		End:               end,
		Purpose:           purpose,
		Notes:             strings.TrimSpace(in.Notes),
		Attendees:         in.Attendees,
	}, nil
}

// Submit records a new pending reservation. Overlapping pending requests are
// queued; only an approved or active overlap refuses the submission.
func (s *ReservationService) Submit(ctx context.Context, actor domain.Actor, in SubmitInput) (domain.Reservation, error) {
	if !actor.CanSubmit() {
		return domain.Reservation{}, s.deny(actor, "submit reservations")
	}
	res, err := s.parseSubmit(actor, in)
	if err != nil {
		return domain.Reservation{}, err
	}

	now := s.clock.Now()
	if !now.Before(res.EndAt(s.loc)) {
		return domain.Reservation{}, domain.NewValidationError("end_time", "interval has already elapsed")
	}

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		room, err := s.repo.GetRoomForUpdate(txCtx, res.RoomID)
		if err != nil {
			return err
		}
		if room.Disabled {
			return domain.ErrRoomDisabled
		}
		if res.Attendees > room.Capacity {
			return domain.NewValidationError("attendees", "exceeds room capacity")
		}

		if err := s.repo.LockPartition(txCtx, res.RoomID, res.Date); err != nil {
			return err
		}
		conflicts, err := s.findConflicts(txCtx, res.RoomID, res.Date, res.Start, res.End, "")
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &domain.ConflictError{RoomID: res.RoomID, Date: res.Date, Conflicts: conflicts}
		}

		res.ID = newUUID()
		res.State = domain.StatePending
		res.Version = 1
		res.CreatedBy = actor.ID
		res.CreatedAt = now
		if err := s.repo.CreateReservation(txCtx, res); err != nil {
			return err
		}
		return s.repo.AppendHistory(txCtx, domain.HistoryEntry{
			ReservationID: res.ID,
			To:            domain.StatePending,
			ActorID:       actor.ID,
			At:            now,
		})
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	s.publish(ctx, "", res, actor, now)
	return res, nil
}

// Approve moves a pending reservation to approved. The conflict check is
// repeated under the (room, date) lock; on conflict the reservation stays pending.
func (s *ReservationService) Approve(ctx context.Context, id string, actor domain.Actor) (domain.Reservation, error) {
	if !actor.CanApproveReject() {
		return domain.Reservation{}, s.deny(actor, "approve reservations")
	}
	return s.transition(ctx, id, actor, true, "", func(txCtx context.Context, cur domain.Reservation, now time.Time) (domain.Reservation, error) {
		next, err := cur.Approve(actor, now)
		if err != nil {
			return cur, err
		}
		conflicts, err := s.findConflicts(txCtx, cur.RoomID, cur.Date, cur.Start, cur.End, cur.ID)
		if err != nil {
			return cur, err
		}
		if len(conflicts) > 0 {
			return cur, &domain.ConflictError{RoomID: cur.RoomID, Date: cur.Date, Conflicts: conflicts}
		}
		return next, nil
	})
}

func (s *ReservationService) Reject(ctx context.Context, id string, actor domain.Actor, reason string) (domain.Reservation, error) {
	if !actor.CanApproveReject() {
		return domain.Reservation{}, s.deny(actor, "reject reservations")
	}
	if strings.TrimSpace(reason) == "" {
		return domain.Reservation{}, domain.NewValidationError("reason", "required")
	}
	return s.transition(ctx, id, actor, false, reason, func(_ context.Context, cur domain.Reservation, now time.Time) (domain.Reservation, error) {
		return cur.Reject(actor, reason, now)
	})
}

// Cancel withdraws a pending or approved reservation before its start time.
// Only the requester or an administrator may cancel.
func (s *ReservationService) Cancel(ctx context.Context, id string, actor domain.Actor) (domain.Reservation, error) {
	return s.transition(ctx, id, actor, false, "", func(_ context.Context, cur domain.Reservation, now time.Time) (domain.Reservation, error) {
		if !actor.CanActOn(cur) {
			return cur, s.deny(actor, "cancel reservation "+cur.ID)
		}
		return cur.Cancel(actor, now, s.loc)
	})
}

// Complete records the return of the room.
func (s *ReservationService) Complete(ctx context.Context, id string, actor domain.Actor) (domain.Reservation, error) {
	if !actor.CanManageResources() {
		return domain.Reservation{}, s.deny(actor, "complete reservations")
	}
	return s.transition(ctx, id, actor, false, "", func(_ context.Context, cur domain.Reservation, now time.Time) (domain.Reservation, error) {
		return cur.Complete(actor, now, s.loc)
	})
}

// Activate marks first use of an approved reservation inside its window.
func (s *ReservationService) Activate(ctx context.Context, id string, actor domain.Actor) (domain.Reservation, error) {
	return s.transition(ctx, id, actor, false, "", func(_ context.Context, cur domain.Reservation, now time.Time) (domain.Reservation, error) {
		if !actor.CanActOn(cur) && !actor.CanManageResources() {
			return cur, s.deny(actor, "activate reservation "+cur.ID)
		}
		return cur.Activate(now, s.loc)
	})
}

type transitionFunc func(txCtx context.Context, cur domain.Reservation, now time.Time) (domain.Reservation, error)

// transition applies fn to the row-locked reservation and commits the result
// together with its history entry. Nothing is written when fn fails.
func (s *ReservationService) transition(ctx context.Context, id string, actor domain.Actor, lockPartition bool, note string, fn transitionFunc) (domain.Reservation, error) {
	if id == "" {
		return domain.Reservation{}, domain.ErrInvalidID
	}
	now := s.clock.Now()
	var before, after domain.Reservation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if lockPartition {
			// Room and date never change after submission, so the partition
			// key can be read before the lock is taken.
			peek, err := s.repo.GetReservation(txCtx, id)
			if err != nil {
				return err
			}
			if err := s.repo.LockPartition(txCtx, peek.RoomID, peek.Date); err != nil {
				return err
			}
		}

		cur, err := s.repo.GetReservationForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		next, err := fn(txCtx, cur, now)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateReservation(txCtx, next); err != nil {
			return err
		}
		next.Version++

		if err := s.repo.AppendHistory(txCtx, domain.HistoryEntry{
			ReservationID: next.ID,
			From:          cur.State,
			To:            next.State,
			ActorID:       actor.ID,
			Note:          strings.TrimSpace(note),
			At:            now,
		}); err != nil {
			return err
		}
		before, after = cur, next
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	s.publish(ctx, before.State, after, actor, now)
	return after, nil
}

// Get returns a reservation visible to actor.
func (s *ReservationService) Get(ctx context.Context, id string, actor domain.Actor) (domain.Reservation, error) {
	if id == "" {
		return domain.Reservation{}, domain.ErrInvalidID
	}
	res, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !actor.CanActOn(res) {
		return domain.Reservation{}, s.deny(actor, "view reservation "+id)
	}
	return res, nil
}

// List returns reservations matching filter. Regular users only see their own.
func (s *ReservationService) List(ctx context.Context, actor domain.Actor, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	if !actor.CanSubmit() {
		return nil, s.deny(actor, "list reservations")
	}
	if !actor.CanApproveReject() {
		filter.RequesterID = actor.ID
	}
	return s.repo.ListReservations(ctx, filter)
}

// History returns the audit trail of a reservation, oldest first.
func (s *ReservationService) History(ctx context.Context, id string, actor domain.Actor) ([]domain.HistoryEntry, error) {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, id)
}

func (s *ReservationService) deny(actor domain.Actor, action string) error {
	s.logger.Printf("WARN: permission denied actor=%s role=%s action=%q", actor.ID, actor.Role, action)
	return &domain.PermissionError{ActorID: actor.ID, Action: action}
}

// publish informs the sink after commit. Sink failures are logged only.
func (s *ReservationService) publish(ctx context.Context, from domain.State, res domain.Reservation, actor domain.Actor, now time.Time) {
	if s.sink == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	event := domain.Event{
		Type:          domain.EventTypeFor(res.State),
		ReservationID: res.ID,
		RoomID:        res.RoomID,
		RequesterID:   res.RequesterID,
		From:          from,
		To:            res.State,
		ActorID:       actor.ID,
		At:            now,
	}
	if status, err := s.RoomStatus(pubCtx, res.RoomID, now); err == nil {
		event.RoomStatus = status
	} else {
		s.logger.Printf("WARN: project room status room=%s: %v", res.RoomID, err)
	}

	if err := s.sink.Publish(pubCtx, event); err != nil {
		s.logger.Printf("WARN: publish event type=%s reservation=%s: %v", event.Type, res.ID, err)
	}
}
