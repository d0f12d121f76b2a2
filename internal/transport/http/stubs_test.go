package http

import (
	"context"
	"io"
	"log"
	"net/http"
	"testing"
	"time"

	"github.com/cimillas/room-booking/internal/app"
	"github.com/cimillas/room-booking/internal/clock"
	"github.com/cimillas/room-booking/internal/domain"
)

var (
	testSecret = []byte("test-secret")
	testNow    = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	adminActor = domain.Actor{ID: "admin-1", Name: "Ada", Role: domain.RoleAdmin}
	userActor  = domain.Actor{ID: "user-1", Name: "Uma", Role: domain.RoleUser}
)

type stubActors map[string]domain.Actor

func (s stubActors) GetActor(_ context.Context, id string) (domain.Actor, error) {
	a, ok := s[id]
	if !ok {
		return domain.Actor{}, domain.ErrActorNotFound
	}
	return a, nil
}

type stubReservationService struct {
	res       domain.Reservation
	list      []domain.Reservation
	history   []domain.HistoryEntry
	status    domain.RoomStatus
	err       error
	gotActor  domain.Actor
	gotID     string
	gotInput  app.SubmitInput
	gotReason string
	gotFilter domain.ReservationFilter
	gotAt     time.Time
	called    string
}

func (s *stubReservationService) record(call, id string, actor domain.Actor) (domain.Reservation, error) {
	s.called = call
	s.gotID = id
	s.gotActor = actor
	return s.res, s.err
}

func (s *stubReservationService) Submit(_ context.Context, actor domain.Actor, in app.SubmitInput) (domain.Reservation, error) {
	s.gotInput = in
	return s.record("submit", "", actor)
}

func (s *stubReservationService) Approve(_ context.Context, id string, actor domain.Actor) (domain.Reservation, error) {
	return s.record("approve", id, actor)
}

func (s *stubReservationService) Reject(_ context.Context, id string, actor domain.Actor, reason string) (domain.Reservation, error) {
	s.gotReason = reason
	return s.record("reject", id, actor)
}

func (s *stubReservationService) Cancel(_ context.Context, id string, actor domain.Actor) (domain.Reservation, error) {
	return s.record("cancel", id, actor)
}

func (s *stubReservationService) Complete(_ context.Context, id string, actor domain.Actor) (domain.Reservation, error) {
	return s.record("complete", id, actor)
}

func (s *stubReservationService) Activate(_ context.Context, id string, actor domain.Actor) (domain.Reservation, error) {
	return s.record("activate", id, actor)
}

func (s *stubReservationService) Get(_ context.Context, id string, actor domain.Actor) (domain.Reservation, error) {
	return s.record("get", id, actor)
}

func (s *stubReservationService) List(_ context.Context, actor domain.Actor, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	s.called = "list"
	s.gotActor = actor
	s.gotFilter = filter
	return s.list, s.err
}

func (s *stubReservationService) History(_ context.Context, id string, actor domain.Actor) ([]domain.HistoryEntry, error) {
	s.called = "history"
	s.gotID = id
	s.gotActor = actor
	return s.history, s.err
}

func (s *stubReservationService) RoomStatus(_ context.Context, roomID string, now time.Time) (domain.RoomStatus, error) {
	s.called = "status"
	s.gotID = roomID
	s.gotAt = now
	return s.status, s.err
}

func (s *stubReservationService) ListConflicts(_ context.Context, roomID string, _ domain.Date, _, _ domain.TimeOfDay) ([]domain.Reservation, error) {
	s.called = "conflicts"
	s.gotID = roomID
	return s.list, s.err
}

type stubRoomService struct {
	room     domain.Room
	rooms    []domain.Room
	err      error
	called   string
	gotID    string
	gotInput app.RoomInput
	gotOn    bool
	gotAll   bool
}

func (s *stubRoomService) CreateRoom(_ context.Context, _ domain.Actor, in app.RoomInput) (domain.Room, error) {
	s.called = "create"
	s.gotInput = in
	return s.room, s.err
}

func (s *stubRoomService) UpdateRoom(_ context.Context, _ domain.Actor, id string, in app.RoomInput) (domain.Room, error) {
	s.called = "update"
	s.gotID = id
	s.gotInput = in
	return s.room, s.err
}

func (s *stubRoomService) SetMaintenance(_ context.Context, _ domain.Actor, id string, on bool) (domain.Room, error) {
	s.called = "maintenance"
	s.gotID = id
	s.gotOn = on
	return s.room, s.err
}

func (s *stubRoomService) DisableRoom(_ context.Context, _ domain.Actor, id string) (domain.Room, error) {
	s.called = "disable"
	s.gotID = id
	return s.room, s.err
}

func (s *stubRoomService) DeleteRoom(_ context.Context, _ domain.Actor, id string) error {
	s.called = "delete"
	s.gotID = id
	return s.err
}

func (s *stubRoomService) GetRoom(_ context.Context, id string) (domain.Room, error) {
	s.called = "get"
	s.gotID = id
	return s.room, s.err
}

func (s *stubRoomService) ListRooms(_ context.Context, includeDisabled bool) ([]domain.Room, error) {
	s.called = "list"
	s.gotAll = includeDisabled
	return s.rooms, s.err
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestRouter(res *stubReservationService, rooms *stubRoomService) http.Handler {
	actors := stubActors{adminActor.ID: adminActor, userActor.ID: userActor}
	return NewRouter(RouterConfig{
		Reservations: res,
		Rooms:        rooms,
		Auth:         NewAuthenticator(testSecret, actors, quietLogger()),
		Clock:        clock.NewFixed(testNow),
		Logger:       quietLogger(),
	})
}

func bearer(t *testing.T, actorID string) string {
	t.Helper()
	token, err := SignToken(testSecret, actorID, time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}
