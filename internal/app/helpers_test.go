package app

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/cimillas/room-booking/internal/clock"
	"github.com/cimillas/room-booking/internal/domain"
	"github.com/cimillas/room-booking/internal/storage/memory"
)

const testDate = "2025-03-10"

var (
	adminActor = domain.Actor{ID: "admin-1", Name: "Ada", Role: domain.RoleAdmin}
	superActor = domain.Actor{ID: "root-1", Name: "Root", Role: domain.RoleSuperAdmin}
	alice      = domain.Actor{ID: "alice", Name: "Alice", Role: domain.RoleUser}
	bob        = domain.Actor{ID: "bob", Name: "Bob", Role: domain.RoleUser}
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC)
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (r *recordingSink) Publish(_ context.Context, event domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingSink) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store *memory.Store
	clock *clock.Manual
	svc   *ReservationService
	rooms *RoomService
	sink  *recordingSink
	logs  *bytes.Buffer
	room  domain.Room
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clk := clock.NewManual(at(8, 0))
	sink := &recordingSink{}
	logs := &bytes.Buffer{}
	logger := log.New(&lockedWriter{w: logs}, "", 0)

	f := &fixture{
		store: store,
		clock: clk,
		svc:   NewReservationService(store, clk, WithEventSink(sink), WithLogger(logger)),
		rooms: NewRoomService(store, clk, logger),
		sink:  sink,
		logs:  logs,
	}
	room, err := f.rooms.CreateRoom(context.Background(), adminActor, RoomInput{Name: "Room A", Capacity: 6, Location: "HQ"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	f.room = room
	return f
}

func (f *fixture) input(start, end string) SubmitInput {
	return SubmitInput{
		RoomID:            f.room.ID,
		RequesterCategory: string(domain.CategoryEmployee),
		Date:              testDate,
		StartTime:         start,
		EndTime:           end,
		Purpose:           "sync",
	}
}

func (f *fixture) submit(t *testing.T, actor domain.Actor, start, end string) domain.Reservation {
	t.Helper()
	res, err := f.svc.Submit(context.Background(), actor, f.input(start, end))
	if err != nil {
		t.Fatalf("submit %s-%s: %v", start, end, err)
	}
	return res
}

func (f *fixture) approve(t *testing.T, id string) domain.Reservation {
	t.Helper()
	res, err := f.svc.Approve(context.Background(), id, adminActor)
	if err != nil {
		t.Fatalf("approve %s: %v", id, err)
	}
	return res
}

func (f *fixture) get(t *testing.T, id string) domain.Reservation {
	t.Helper()
	res, err := f.store.GetReservation(context.Background(), id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return res
}

// assertNoOccupyingOverlap checks that no two approved or active
// reservations of the same room and day intersect.
func assertNoOccupyingOverlap(t *testing.T, store *memory.Store) {
	t.Helper()
	all, err := store.ListReservations(context.Background(), domain.ReservationFilter{States: domain.OccupyingStates})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if all[i].Overlaps(all[j]) {
				t.Fatalf("occupying reservations overlap: %s [%s-%s] and %s [%s-%s]",
					all[i].ID, all[i].Start, all[i].End, all[j].ID, all[j].Start, all[j].End)
			}
		}
	}
}

func expectErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}

type lockedWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
