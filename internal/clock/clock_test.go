package clock

import (
	"testing"
	"time"
)

func TestFixed(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.FixedZone("UTC+7", 7*3600))
	c := NewFixed(at)
	if !c.Now().Equal(at) || c.Now().Location() != time.UTC {
		t.Fatalf("expected %v in UTC, got %v", at, c.Now())
	}
}

func TestManual(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	m := NewManual(start)
	m.Advance(90 * time.Minute)
	if want := start.Add(90 * time.Minute); !m.Now().Equal(want) {
		t.Fatalf("expected %v, got %v", want, m.Now())
	}
	m.Set(start)
	if !m.Now().Equal(start) {
		t.Fatalf("expected %v, got %v", start, m.Now())
	}
}
