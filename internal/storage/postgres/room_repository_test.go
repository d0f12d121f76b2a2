package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/cimillas/room-booking/internal/domain"
	"github.com/cimillas/room-booking/internal/testutil"
)

const missingID = "00000000-0000-0000-0000-000000000001"

func TestRoomRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewRoomRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("CreateRoom and GetRoom round trip", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		now := time.Now().UTC().Truncate(time.Microsecond)
		room := domain.Room{
			ID:         "5d0c1c8e-6a53-4a0c-9a0f-1f2f3b4c5d6e",
			Name:       "Room A",
			Capacity:   6,
			Location:   "HQ 2F",
			Facilities: []string{"tv", "whiteboard"},
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := repo.CreateRoom(ctx, room); err != nil {
			t.Fatalf("create: %v", err)
		}

		got, err := repo.GetRoom(ctx, room.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Name != room.Name || got.Capacity != 6 || len(got.Facilities) != 2 || !got.CreatedAt.Equal(now) {
			t.Fatalf("unexpected room: %+v", got)
		}

		if _, err := repo.GetRoom(ctx, missingID); err != domain.ErrRoomNotFound {
			t.Fatalf("expected ErrRoomNotFound, got %v", err)
		}
		if _, err := repo.GetRoom(ctx, "not-a-uuid"); err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("UpdateRoom and ListRooms hide disabled", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		keepID := testutil.InsertRoom(t, ctx, pool, "Keep", 4)
		goneID := testutil.InsertRoom(t, ctx, pool, "Gone", 4)

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			room, err := repo.GetRoomForUpdate(txCtx, goneID)
			if err != nil {
				return err
			}
			room.Disabled = true
			room.Maintenance = true
			return repo.UpdateRoom(txCtx, room)
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}

		visible, err := repo.ListRooms(ctx, false)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(visible) != 1 || visible[0].ID != keepID {
			t.Fatalf("expected only %s, got %+v", keepID, visible)
		}
		all, _ := repo.ListRooms(ctx, true)
		if len(all) != 2 {
			t.Fatalf("expected 2 rooms, got %d", len(all))
		}

		if err := repo.UpdateRoom(ctx, domain.Room{ID: missingID, Name: "x", Capacity: 1}); err != domain.ErrRoomNotFound {
			t.Fatalf("expected ErrRoomNotFound, got %v", err)
		}
	})

	t.Run("DeleteRoom refuses referenced rooms", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		usedID := testutil.InsertRoom(t, ctx, pool, "Used", 4)
		freeID := testutil.InsertRoom(t, ctx, pool, "Free", 4)
		testutil.InsertReservation(t, ctx, pool, usedID, domain.StateCancelled, "2025-03-10", 600, 660)

		n, err := repo.CountReservations(ctx, usedID)
		if err != nil || n != 1 {
			t.Fatalf("expected 1 reservation, got %d %v", n, err)
		}
		if err := repo.DeleteRoom(ctx, usedID); err != domain.ErrRoomInUse {
			t.Fatalf("expected ErrRoomInUse, got %v", err)
		}
		if err := repo.DeleteRoom(ctx, freeID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := repo.DeleteRoom(ctx, freeID); err != domain.ErrRoomNotFound {
			t.Fatalf("expected ErrRoomNotFound, got %v", err)
		}
	})
}
