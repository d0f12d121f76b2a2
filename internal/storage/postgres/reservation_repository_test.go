package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cimillas/room-booking/internal/app"
	"github.com/cimillas/room-booking/internal/clock"
	"github.com/cimillas/room-booking/internal/domain"
	"github.com/cimillas/room-booking/internal/testutil"
)

func TestReservationRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewReservationRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("CreateReservation and GetReservation round trip", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		roomID := testutil.InsertRoom(t, ctx, pool, "Room A", 6)

		now := time.Now().UTC().Truncate(time.Microsecond)
		res := domain.Reservation{
			ID:                "8b6f1c1e-3a2b-4c5d-8e9f-0a1b2c3d4e5f",
			RoomID:            roomID,
			RequesterID:       "alice",
			RequesterName:     "Alice",
			RequesterEmail:    "alice@example.com",
			RequesterCategory: domain.CategoryGuest,
			Date:              "2025-03-10",
			Start:             600,
			End:               690,
			Purpose:           "interview",
			Attendees:         3,
			State:             domain.StatePending,
			Version:           1,
			CreatedBy:         "alice",
			CreatedAt:         now,
		}
		if err := repo.CreateReservation(ctx, res); err != nil {
			t.Fatalf("create: %v", err)
		}

		got, err := repo.GetReservation(ctx, res.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Date != res.Date || got.Start != 600 || got.End != 690 || got.RequesterCategory != domain.CategoryGuest {
			t.Fatalf("unexpected reservation: %+v", got)
		}
		if got.ApprovedAt != nil || !got.CreatedAt.Equal(now) {
			t.Fatalf("unexpected timestamps: %+v", got)
		}

		if _, err := repo.GetReservation(ctx, missingID); err != domain.ErrReservationNotFound {
			t.Fatalf("expected ErrReservationNotFound, got %v", err)
		}
		if _, err := repo.GetReservation(ctx, "not-a-uuid"); err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}

		res.ID = "9b6f1c1e-3a2b-4c5d-8e9f-0a1b2c3d4e5f"
		res.RoomID = missingID
		if err := repo.CreateReservation(ctx, res); err != domain.ErrRoomNotFound {
			t.Fatalf("expected ErrRoomNotFound, got %v", err)
		}
	})

	t.Run("UpdateReservation bumps version and detects stale writes", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		roomID := testutil.InsertRoom(t, ctx, pool, "Room A", 6)
		id := testutil.InsertReservation(t, ctx, pool, roomID, domain.StatePending, "2025-03-10", 600, 660)

		cur, err := repo.GetReservation(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		approvedAt := time.Now().UTC().Truncate(time.Microsecond)
		next, err := cur.Approve(domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}, approvedAt)
		if err != nil {
			t.Fatalf("approve: %v", err)
		}
		if err := repo.UpdateReservation(ctx, next); err != nil {
			t.Fatalf("update: %v", err)
		}

		got, _ := repo.GetReservation(ctx, id)
		if got.State != domain.StateApproved || got.Version != 2 || got.ApprovedBy != "admin-1" {
			t.Fatalf("unexpected reservation: %+v", got)
		}
		if got.ApprovedAt == nil || !got.ApprovedAt.Equal(approvedAt) {
			t.Fatalf("unexpected approved_at: %v", got.ApprovedAt)
		}

		if err := repo.UpdateReservation(ctx, next); err != domain.ErrStaleReservation {
			t.Fatalf("expected ErrStaleReservation, got %v", err)
		}
		next.ID = missingID
		if err := repo.UpdateReservation(ctx, next); err != domain.ErrReservationNotFound {
			t.Fatalf("expected ErrReservationNotFound, got %v", err)
		}
	})

	t.Run("ListReservations filters and orders", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		roomA := testutil.InsertRoom(t, ctx, pool, "A", 6)
		roomB := testutil.InsertRoom(t, ctx, pool, "B", 6)

		late := testutil.InsertReservation(t, ctx, pool, roomA, domain.StateApproved, "2025-03-10", 720, 780)
		early := testutil.InsertReservation(t, ctx, pool, roomA, domain.StateActive, "2025-03-10", 540, 600)
		testutil.InsertReservation(t, ctx, pool, roomA, domain.StatePending, "2025-03-10", 600, 660)
		testutil.InsertReservation(t, ctx, pool, roomA, domain.StateApproved, "2025-03-11", 540, 600)
		testutil.InsertReservation(t, ctx, pool, roomB, domain.StateApproved, "2025-03-10", 540, 600)

		occ, err := repo.ListOccupying(ctx, roomA, "2025-03-10")
		if err != nil {
			t.Fatalf("list occupying: %v", err)
		}
		if len(occ) != 2 || occ[0].ID != early || occ[1].ID != late {
			t.Fatalf("unexpected occupying: %+v", occ)
		}

		upTo, err := repo.ListReservations(ctx, domain.ReservationFilter{DateTo: "2025-03-10"})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(upTo) != 4 {
			t.Fatalf("expected 4 up to 2025-03-10, got %d", len(upTo))
		}

		seeded, _ := repo.ListReservations(ctx, domain.ReservationFilter{RequesterID: "seed", RoomID: roomB})
		if len(seeded) != 1 {
			t.Fatalf("expected 1 for room B, got %d", len(seeded))
		}

		if _, err := repo.ListReservations(ctx, domain.ReservationFilter{RoomID: "not-a-uuid"}); err != domain.ErrInvalidID {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("History is ordered by insertion", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		roomID := testutil.InsertRoom(t, ctx, pool, "A", 6)
		id := testutil.InsertReservation(t, ctx, pool, roomID, domain.StatePending, "2025-03-10", 600, 660)

		at := time.Now().UTC().Truncate(time.Microsecond)
		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			if err := repo.AppendHistory(txCtx, domain.HistoryEntry{ReservationID: id, To: domain.StatePending, ActorID: "alice", At: at}); err != nil {
				return err
			}
			return repo.AppendHistory(txCtx, domain.HistoryEntry{ReservationID: id, From: domain.StatePending, To: domain.StateRejected, ActorID: "admin-1", Note: "full", At: at})
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}

		entries, err := repo.ListHistory(ctx, id)
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		if len(entries) != 2 || entries[0].From != "" || entries[1].Note != "full" {
			t.Fatalf("unexpected history: %+v", entries)
		}

		err = repo.AppendHistory(ctx, domain.HistoryEntry{ReservationID: missingID, To: domain.StatePending, ActorID: "x", At: at})
		if err != domain.ErrReservationNotFound {
			t.Fatalf("expected ErrReservationNotFound, got %v", err)
		}
	})

	t.Run("WithTx rolls back on error", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		roomID := testutil.InsertRoom(t, ctx, pool, "A", 6)
		id := testutil.InsertReservation(t, ctx, pool, roomID, domain.StatePending, "2025-03-10", 600, 660)

		boom := errors.New("boom")
		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			cur, err := repo.GetReservationForUpdate(txCtx, id)
			if err != nil {
				return err
			}
			cur.State = domain.StateCancelled
			if err := repo.UpdateReservation(txCtx, cur); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		got, _ := repo.GetReservation(ctx, id)
		if got.State != domain.StatePending || got.Version != 1 {
			t.Fatalf("expected rollback, got %+v", got)
		}
	})
}

func TestConcurrentApprovals(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	roomID := testutil.InsertRoom(t, ctx, pool, "Room A", 6)
	var ids []string
	for i := 0; i < 12; i++ {
		// Every pair of neighbours overlaps by 30 minutes.
		start := domain.TimeOfDay(540 + i*30)
		ids = append(ids, testutil.InsertReservation(t, ctx, pool, roomID, domain.StatePending, "2099-01-05", start, start+60))
	}

	svc := app.NewReservationService(NewReservationRepository(pool), clock.NewFixed(time.Date(2099, 1, 5, 6, 0, 0, 0, time.UTC)))
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.Approve(ctx, id, admin)
			if err != nil && !errors.Is(err, domain.ErrConflict) {
				errs <- fmt.Errorf("approve %s: %w", id, err)
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	repo := NewReservationRepository(pool)
	occ, err := repo.ListOccupying(ctx, roomID, "2099-01-05")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(occ) == 0 {
		t.Fatalf("expected approvals")
	}
	for i := 1; i < len(occ); i++ {
		if occ[i-1].Overlaps(occ[i]) {
			t.Fatalf("overlapping approvals: %+v and %+v", occ[i-1], occ[i])
		}
	}
}
