package app

import (
	"context"
	"errors"
	"testing"

	"github.com/cimillas/room-booking/internal/domain"
)

func TestCreateRoom(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		actor domain.Actor
		in    RoomInput
		err   error
	}{
		{name: "user", actor: alice, in: RoomInput{Name: "B", Capacity: 2}, err: domain.ErrPermission},
		{name: "missing name", actor: adminActor, in: RoomInput{Name: " ", Capacity: 2}, err: domain.ErrValidation},
		{name: "zero capacity", actor: adminActor, in: RoomInput{Name: "B"}, err: domain.ErrValidation},
		{name: "ok", actor: superActor, in: RoomInput{Name: " Room B ", Capacity: 10, Facilities: []string{"tv", " tv", "", "whiteboard"}}},
	}

	for _, tt := range tests {
		room, err := f.rooms.CreateRoom(ctx, tt.actor, tt.in)
		if tt.err != nil {
			if !errors.Is(err, tt.err) {
				t.Fatalf("%s: expected %v, got %v", tt.name, tt.err, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if room.Name != "Room B" || len(room.Facilities) != 2 {
			t.Fatalf("%s: unexpected room %+v", tt.name, room)
		}
	}

	rooms, err := f.rooms.ListRooms(ctx, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}
}

func TestUpdateRoom(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.clock.Set(at(9, 0))
	room, err := f.rooms.UpdateRoom(ctx, adminActor, f.room.ID, RoomInput{Name: "Room A+", Capacity: 8})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if room.Capacity != 8 || !room.UpdatedAt.Equal(at(9, 0)) || !room.CreatedAt.Equal(at(8, 0)) {
		t.Fatalf("unexpected room %+v", room)
	}

	_, err = f.rooms.UpdateRoom(ctx, adminActor, "missing", RoomInput{Name: "x", Capacity: 1})
	expectErr(t, err, domain.ErrRoomNotFound)
	_, err = f.rooms.UpdateRoom(ctx, bob, f.room.ID, RoomInput{Name: "x", Capacity: 1})
	expectErr(t, err, domain.ErrPermission)
}

func TestDisableRoom(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	x := f.submit(t, alice, "10:00", "11:00")

	room, err := f.rooms.DisableRoom(ctx, adminActor, f.room.ID)
	if err != nil || !room.Disabled {
		t.Fatalf("disable: %+v %v", room, err)
	}

	visible, _ := f.rooms.ListRooms(ctx, false)
	if len(visible) != 0 {
		t.Fatalf("disabled room must be hidden by default")
	}
	all, _ := f.rooms.ListRooms(ctx, true)
	if len(all) != 1 {
		t.Fatalf("expected disabled room when included")
	}

	// Existing reservations survive and can still be decided.
	f.approve(t, x.ID)
}

func TestDeleteRoom(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	x := f.submit(t, alice, "10:00", "11:00")
	if _, err := f.svc.Cancel(ctx, x.ID, alice); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	err := f.rooms.DeleteRoom(ctx, adminActor, f.room.ID)
	expectErr(t, err, domain.ErrRoomInUse)

	spare, err := f.rooms.CreateRoom(ctx, adminActor, RoomInput{Name: "Spare", Capacity: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	expectErr(t, f.rooms.DeleteRoom(ctx, alice, spare.ID), domain.ErrPermission)
	if err := f.rooms.DeleteRoom(ctx, adminActor, spare.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = f.rooms.GetRoom(ctx, spare.ID)
	expectErr(t, err, domain.ErrRoomNotFound)
	expectErr(t, f.rooms.DeleteRoom(ctx, adminActor, spare.ID), domain.ErrRoomNotFound)
	expectErr(t, f.rooms.DeleteRoom(ctx, adminActor, ""), domain.ErrInvalidID)
}
