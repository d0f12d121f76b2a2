package postgres

import (
	"context"
	"fmt"

	"github.com/cimillas/room-booking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RoomRepository struct {
	db
}

func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db{pool: pool}}
}

func (r *RoomRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const roomColumns = `id, name, capacity, location, facilities, maintenance, disabled, created_at, updated_at`

func scanRoom(row pgx.Row) (domain.Room, error) {
	var room domain.Room
	err := row.Scan(
		&room.ID,
		&room.Name,
		&room.Capacity,
		&room.Location,
		&room.Facilities,
		&room.Maintenance,
		&room.Disabled,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	return room, err
}

func (r *RoomRepository) CreateRoom(ctx context.Context, room domain.Room) error {
	const stmt = `
INSERT INTO rooms (id, name, capacity, location, facilities, maintenance, disabled, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	facilities := room.Facilities
	if facilities == nil {
		facilities = []string{}
	}
	_, err := r.exec(ctx, stmt,
		room.ID,
		room.Name,
		room.Capacity,
		room.Location,
		facilities,
		room.Maintenance,
		room.Disabled,
		room.CreatedAt,
		room.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

func (r *RoomRepository) UpdateRoom(ctx context.Context, room domain.Room) error {
	const stmt = `
UPDATE rooms
SET name = $2, capacity = $3, location = $4, facilities = $5, maintenance = $6, disabled = $7, updated_at = $8
WHERE id = $1`
	facilities := room.Facilities
	if facilities == nil {
		facilities = []string{}
	}
	tag, err := r.exec(ctx, stmt,
		room.ID,
		room.Name,
		room.Capacity,
		room.Location,
		facilities,
		room.Maintenance,
		room.Disabled,
		room.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (r *RoomRepository) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	return r.getRoom(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
}

func (r *RoomRepository) GetRoomForUpdate(ctx context.Context, id string) (domain.Room, error) {
	return r.getRoom(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1 FOR UPDATE`, id)
}

func (r *RoomRepository) getRoom(ctx context.Context, query, id string) (domain.Room, error) {
	room, err := scanRoom(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Room{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Room{}, domain.ErrRoomNotFound
		}
		return domain.Room{}, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

func (r *RoomRepository) ListRooms(ctx context.Context, includeDisabled bool) ([]domain.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms`
	if !includeDisabled {
		query += ` WHERE NOT disabled`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate rooms: %w", rows.Err())
	}
	return rooms, nil
}

func (r *RoomRepository) CountReservations(ctx context.Context, roomID string) (int, error) {
	var n int
	if err := r.queryRow(ctx, `SELECT COUNT(*) FROM reservations WHERE room_id = $1`, roomID).Scan(&n); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("count reservations: %w", err)
	}
	return n, nil
}

func (r *RoomRepository) DeleteRoom(ctx context.Context, id string) error {
	tag, err := r.exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrRoomInUse
		}
		return fmt.Errorf("delete room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}
