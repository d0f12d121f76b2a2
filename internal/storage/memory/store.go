// Package memory keeps rooms, reservations and actors in process memory.
// Writes made inside WithTx are staged and applied together on commit;
// partition and row locks are held until the transaction ends.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cimillas/room-booking/internal/domain"
)

type Store struct {
	mu           sync.RWMutex
	rooms        map[string]domain.Room
	reservations map[string]domain.Reservation
	history      map[string][]domain.HistoryEntry
	actors       map[string]domain.Actor

	partitions *keyedMutex
	rows       *keyedMutex
}

func NewStore() *Store {
	return &Store{
		rooms:        make(map[string]domain.Room),
		reservations: make(map[string]domain.Reservation),
		history:      make(map[string][]domain.HistoryEntry),
		actors:       make(map[string]domain.Actor),
		partitions:   newKeyedMutex(),
		rows:         newKeyedMutex(),
	}
}

type txKey struct{}

type tx struct {
	rooms        map[string]domain.Room
	deletedRooms map[string]bool
	reservations map[string]domain.Reservation
	// baseVersions holds the version each staged reservation was read at;
	// zero marks an insert.
	baseVersions map[string]int
	history      []domain.HistoryEntry

	held    map[string]bool
	unlocks []func()
}

func txFromContext(ctx context.Context) *tx {
	t, _ := ctx.Value(txKey{}).(*tx)
	return t
}

func (t *tx) lock(k *keyedMutex, key string) {
	if t.held[key] {
		return
	}
	t.unlocks = append(t.unlocks, k.Lock(key))
	t.held[key] = true
}

func (t *tx) release() {
	for i := len(t.unlocks) - 1; i >= 0; i-- {
		t.unlocks[i]()
	}
	t.unlocks = nil
}

// WithTx runs fn with staged writes. Nested calls join the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	t := &tx{
		rooms:        make(map[string]domain.Room),
		deletedRooms: make(map[string]bool),
		reservations: make(map[string]domain.Reservation),
		baseVersions: make(map[string]int),
		held:         make(map[string]bool),
	}
	defer t.release()

	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}
	return s.commit(t)
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, base := range t.baseVersions {
		cur, exists := s.reservations[id]
		if base == 0 && exists {
			return domain.ErrStaleReservation
		}
		if base != 0 && (!exists || cur.Version != base) {
			return domain.ErrStaleReservation
		}
	}

	for id, room := range t.rooms {
		s.rooms[id] = room
	}
	for id := range t.deletedRooms {
		delete(s.rooms, id)
	}
	for id, r := range t.reservations {
		s.reservations[id] = r
	}
	for _, e := range t.history {
		s.history[e.ReservationID] = append(s.history[e.ReservationID], e)
	}
	return nil
}

// apply runs a write either staged in the caller's transaction or as its own.
func (s *Store) apply(ctx context.Context, fn func(t *tx) error) error {
	if t := txFromContext(ctx); t != nil {
		return fn(t)
	}
	return s.WithTx(ctx, func(txCtx context.Context) error {
		return fn(txFromContext(txCtx))
	})
}

func copyRoom(r domain.Room) domain.Room {
	r.Facilities = append([]string(nil), r.Facilities...)
	return r
}

// --- rooms ---

func (s *Store) lookupRoom(ctx context.Context, id string) (domain.Room, bool) {
	if t := txFromContext(ctx); t != nil {
		if t.deletedRooms[id] {
			return domain.Room{}, false
		}
		if r, ok := t.rooms[id]; ok {
			return r, true
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	return r, ok
}

func (s *Store) CreateRoom(ctx context.Context, room domain.Room) error {
	if room.ID == "" {
		return domain.ErrInvalidID
	}
	return s.apply(ctx, func(t *tx) error {
		t.rooms[room.ID] = copyRoom(room)
		return nil
	})
}

func (s *Store) UpdateRoom(ctx context.Context, room domain.Room) error {
	if _, ok := s.lookupRoom(ctx, room.ID); !ok {
		return domain.ErrRoomNotFound
	}
	return s.apply(ctx, func(t *tx) error {
		t.rooms[room.ID] = copyRoom(room)
		return nil
	})
}

func (s *Store) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	r, ok := s.lookupRoom(ctx, id)
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return copyRoom(r), nil
}

func (s *Store) GetRoomForUpdate(ctx context.Context, id string) (domain.Room, error) {
	if t := txFromContext(ctx); t != nil {
		t.lock(s.rows, "room:"+id)
	}
	return s.GetRoom(ctx, id)
}

func (s *Store) ListRooms(_ context.Context, includeDisabled bool) ([]domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]domain.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		if r.Disabled && !includeDisabled {
			continue
		}
		rooms = append(rooms, copyRoom(r))
	}
	sort.Slice(rooms, func(i, j int) bool {
		if !rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
		}
		return rooms[i].ID < rooms[j].ID
	})
	return rooms, nil
}

func (s *Store) CountReservations(ctx context.Context, roomID string) (int, error) {
	all, err := s.ListReservations(ctx, domain.ReservationFilter{RoomID: roomID})
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	if _, ok := s.lookupRoom(ctx, id); !ok {
		return domain.ErrRoomNotFound
	}
	return s.apply(ctx, func(t *tx) error {
		delete(t.rooms, id)
		t.deletedRooms[id] = true
		return nil
	})
}

// --- reservations ---

// LockPartition blocks until no other transaction holds (roomID, date).
// Outside a transaction it is a no-op.
func (s *Store) LockPartition(ctx context.Context, roomID string, date domain.Date) error {
	if t := txFromContext(ctx); t != nil {
		t.lock(s.partitions, roomID+"|"+date.String())
	}
	return nil
}

func (s *Store) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	if t := txFromContext(ctx); t != nil {
		if r, ok := t.reservations[id]; ok {
			return r, nil
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[id]
	if !ok {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	return r, nil
}

func (s *Store) GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error) {
	if t := txFromContext(ctx); t != nil {
		t.lock(s.rows, "reservation:"+id)
	}
	return s.GetReservation(ctx, id)
}

// snapshot merges committed reservations with those staged in ctx's transaction.
func (s *Store) snapshot(ctx context.Context) []domain.Reservation {
	s.mu.RLock()
	merged := make(map[string]domain.Reservation, len(s.reservations))
	for id, r := range s.reservations {
		merged[id] = r
	}
	s.mu.RUnlock()

	if t := txFromContext(ctx); t != nil {
		for id, r := range t.reservations {
			merged[id] = r
		}
	}
	out := make([]domain.Reservation, 0, len(merged))
	for _, r := range merged {
		out = append(out, r)
	}
	return out
}

func (s *Store) ListReservations(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for _, r := range s.snapshot(ctx) {
		if filter.Match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out, nil
}

func (s *Store) ListOccupying(ctx context.Context, roomID string, date domain.Date) ([]domain.Reservation, error) {
	return s.ListReservations(ctx, domain.ReservationFilter{
		RoomID: roomID,
		Date:   date,
		States: domain.OccupyingStates,
	})
}

func (s *Store) CreateReservation(ctx context.Context, r domain.Reservation) error {
	if r.ID == "" {
		return domain.ErrInvalidID
	}
	if _, ok := s.lookupRoom(ctx, r.RoomID); !ok {
		return domain.ErrRoomNotFound
	}
	return s.apply(ctx, func(t *tx) error {
		t.reservations[r.ID] = r
		t.baseVersions[r.ID] = 0
		return nil
	})
}

func (s *Store) UpdateReservation(ctx context.Context, r domain.Reservation) error {
	cur, err := s.GetReservation(ctx, r.ID)
	if err != nil {
		return err
	}
	if cur.Version != r.Version {
		return domain.ErrStaleReservation
	}
	return s.apply(ctx, func(t *tx) error {
		if _, staged := t.baseVersions[r.ID]; !staged {
			t.baseVersions[r.ID] = r.Version
		}
		r.Version++
		t.reservations[r.ID] = r
		return nil
	})
}

func (s *Store) AppendHistory(ctx context.Context, entry domain.HistoryEntry) error {
	return s.apply(ctx, func(t *tx) error {
		t.history = append(t.history, entry)
		return nil
	})
}

func (s *Store) ListHistory(_ context.Context, reservationID string) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.HistoryEntry(nil), s.history[reservationID]...), nil
}

// --- actors ---

func (s *Store) PutActor(actor domain.Actor) {
	s.mu.Lock()
	s.actors[actor.ID] = actor
	s.mu.Unlock()
}

func (s *Store) GetActor(_ context.Context, id string) (domain.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actors[id]
	if !ok {
		return domain.Actor{}, domain.ErrActorNotFound
	}
	return a, nil
}
