package app

import (
	"context"
	"log"
	"strings"

	"github.com/cimillas/room-booking/internal/clock"
	"github.com/cimillas/room-booking/internal/domain"
)

type RoomRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateRoom(ctx context.Context, room domain.Room) error
	UpdateRoom(ctx context.Context, room domain.Room) error
	GetRoom(ctx context.Context, id string) (domain.Room, error)
	GetRoomForUpdate(ctx context.Context, id string) (domain.Room, error)
	ListRooms(ctx context.Context, includeDisabled bool) ([]domain.Room, error)
	CountReservations(ctx context.Context, roomID string) (int, error)
	DeleteRoom(ctx context.Context, id string) error
}

// RoomService is the room registry. Every mutation requires the
// resource-management capability.
type RoomService struct {
	repo   RoomRepository
	clock  clock.Clock
	logger *log.Logger
}

func NewRoomService(repo RoomRepository, clk clock.Clock, logger *log.Logger) *RoomService {
	if logger == nil {
		logger = log.Default()
	}
	return &RoomService{
		repo:   repo,
		clock:  clk,
		logger: logger,
	}
}

type RoomInput struct {
	Name       string
	Capacity   int
	Location   string
	Facilities []string
}

func (in RoomInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.NewValidationError("name", "required")
	}
	if in.Capacity <= 0 {
		return domain.NewValidationError("capacity", "must be positive")
	}
	return nil
}

func cleanFacilities(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, f := range in {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func (s *RoomService) CreateRoom(ctx context.Context, actor domain.Actor, in RoomInput) (domain.Room, error) {
	if !actor.CanManageResources() {
		return domain.Room{}, s.deny(actor, "create rooms")
	}
	if err := in.validate(); err != nil {
		return domain.Room{}, err
	}

	now := s.clock.Now()
	room := domain.Room{
		ID:         newUUID(),
		Name:       strings.TrimSpace(in.Name),
		Capacity:   in.Capacity,
		Location:   strings.TrimSpace(in.Location),
		Facilities: cleanFacilities(in.Facilities),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateRoom(ctx, room); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (s *RoomService) UpdateRoom(ctx context.Context, actor domain.Actor, id string, in RoomInput) (domain.Room, error) {
	if !actor.CanManageResources() {
		return domain.Room{}, s.deny(actor, "update rooms")
	}
	if err := in.validate(); err != nil {
		return domain.Room{}, err
	}
	return s.mutate(ctx, id, func(room *domain.Room) error {
		room.Name = strings.TrimSpace(in.Name)
		room.Capacity = in.Capacity
		room.Location = strings.TrimSpace(in.Location)
		room.Facilities = cleanFacilities(in.Facilities)
		return nil
	})
}

// SetMaintenance toggles the manual override that forces the maintenance status.
func (s *RoomService) SetMaintenance(ctx context.Context, actor domain.Actor, id string, on bool) (domain.Room, error) {
	if !actor.CanManageResources() {
		return domain.Room{}, s.deny(actor, "set room maintenance")
	}
	return s.mutate(ctx, id, func(room *domain.Room) error {
		room.Maintenance = on
		return nil
	})
}

// DisableRoom soft-deletes a room: it stays referenced by its reservations
// but accepts no new submissions.
func (s *RoomService) DisableRoom(ctx context.Context, actor domain.Actor, id string) (domain.Room, error) {
	if !actor.CanManageResources() {
		return domain.Room{}, s.deny(actor, "disable rooms")
	}
	return s.mutate(ctx, id, func(room *domain.Room) error {
		room.Disabled = true
		return nil
	})
}

// DeleteRoom removes a room that no reservation has ever referenced.
// Referenced rooms must be disabled instead so their history survives.
func (s *RoomService) DeleteRoom(ctx context.Context, actor domain.Actor, id string) error {
	if !actor.CanManageResources() {
		return s.deny(actor, "delete rooms")
	}
	if id == "" {
		return domain.ErrInvalidID
	}
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetRoomForUpdate(txCtx, id); err != nil {
			return err
		}
		n, err := s.repo.CountReservations(txCtx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrRoomInUse
		}
		return s.repo.DeleteRoom(txCtx, id)
	})
}

func (s *RoomService) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	if id == "" {
		return domain.Room{}, domain.ErrInvalidID
	}
	return s.repo.GetRoom(ctx, id)
}

func (s *RoomService) ListRooms(ctx context.Context, includeDisabled bool) ([]domain.Room, error) {
	return s.repo.ListRooms(ctx, includeDisabled)
}

func (s *RoomService) mutate(ctx context.Context, id string, fn func(room *domain.Room) error) (domain.Room, error) {
	if id == "" {
		return domain.Room{}, domain.ErrInvalidID
	}
	var result domain.Room
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		room, err := s.repo.GetRoomForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if err := fn(&room); err != nil {
			return err
		}
		room.UpdatedAt = s.clock.Now()
		if err := s.repo.UpdateRoom(txCtx, room); err != nil {
			return err
		}
		result = room
		return nil
	})
	if err != nil {
		return domain.Room{}, err
	}
	return result, nil
}

func (s *RoomService) deny(actor domain.Actor, action string) error {
	s.logger.Printf("WARN: permission denied actor=%s role=%s action=%q", actor.ID, actor.Role, action)
	return &domain.PermissionError{ActorID: actor.ID, Action: action}
}
