package app

import (
	"context"
	"testing"
	"time"

	"github.com/cimillas/room-booking/internal/domain"
)

func TestSweep(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	early := f.submit(t, alice, "09:00", "10:00")
	late := f.submit(t, bob, "10:30", "11:30")
	pending := f.submit(t, bob, "09:15", "09:45")
	f.approve(t, early.ID)
	f.approve(t, late.ID)

	f.clock.Set(at(9, 30))
	res, err := f.svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res != (SweepResult{Activated: 1}) {
		t.Fatalf("expected one activation, got %+v", res)
	}
	if got := f.get(t, early.ID); got.State != domain.StateActive {
		t.Fatalf("expected early active, got %s", got.State)
	}
	if got := f.get(t, pending.ID); got.State != domain.StatePending {
		t.Fatalf("sweep must not touch pending, got %s", got.State)
	}

	f.clock.Set(at(11, 45))
	res, err = f.svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res != (SweepResult{Completed: 2}) {
		t.Fatalf("expected two completions, got %+v", res)
	}
	for _, id := range []string{early.ID, late.ID} {
		got := f.get(t, id)
		if got.State != domain.StateCompleted || got.CompletedBy != domain.SystemActor.ID {
			t.Fatalf("expected %s completed by system, got %+v", id, got)
		}
	}

	entries, err := f.svc.History(ctx, late.ID, adminActor)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	last := entries[len(entries)-1]
	if last.From != domain.StateApproved || last.Note != "window elapsed" {
		t.Fatalf("unexpected last entry %+v", last)
	}

	res, _ = f.svc.Sweep(ctx)
	if res != (SweepResult{}) {
		t.Fatalf("second sweep must be a no-op, got %+v", res)
	}
}

func TestStartSweeperStopsWithContext(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	x := f.submit(t, alice, "09:00", "10:00")
	f.approve(t, x.ID)
	f.clock.Set(at(9, 10))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.svc.StartSweeper(ctx, 5*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for f.get(t, x.ID).State != domain.StateActive {
		if time.Now().After(deadline) {
			t.Fatalf("sweeper did not activate reservation")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
}
