package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cimillas/room-booking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReservationRepository struct {
	db
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{db: db{pool: pool}}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// LockPartition takes a transaction-scoped advisory lock on (roomID, date).
// It is released by commit or rollback.
func (r *ReservationRepository) LockPartition(ctx context.Context, roomID string, date domain.Date) error {
	const stmt = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
	if _, err := r.exec(ctx, stmt, roomID+"|"+date.String()); err != nil {
		return fmt.Errorf("lock partition: %w", err)
	}
	return nil
}

func (r *ReservationRepository) GetRoom(ctx context.Context, roomID string) (domain.Room, error) {
	return (&RoomRepository{db: r.db}).GetRoom(ctx, roomID)
}

func (r *ReservationRepository) GetRoomForUpdate(ctx context.Context, roomID string) (domain.Room, error) {
	return (&RoomRepository{db: r.db}).GetRoomForUpdate(ctx, roomID)
}

const reservationColumns = `
id, room_id, requester_id, requester_name, requester_email, requester_phone, requester_category,
to_char(date, 'YYYY-MM-DD'), start_minute, end_minute, purpose, notes, attendees, state, version,
created_by, created_at, approved_by, approved_at, rejected_by, rejected_at, rejection_reason,
activated_at, completed_by, completed_at, cancelled_by, cancelled_at`

func scanReservation(row pgx.Row) (domain.Reservation, error) {
	var (
		res        domain.Reservation
		category   string
		date       string
		start, end int
		state      string
	)
	err := row.Scan(
		&res.ID,
		&res.RoomID,
		&res.RequesterID,
		&res.RequesterName,
		&res.RequesterEmail,
		&res.RequesterPhone,
		&category,
		&date,
		&start,
		&end,
		&res.Purpose,
		&res.Notes,
		&res.Attendees,
		&state,
		&res.Version,
		&res.CreatedBy,
		&res.CreatedAt,
		&res.ApprovedBy,
		&res.ApprovedAt,
		&res.RejectedBy,
		&res.RejectedAt,
		&res.RejectionReason,
		&res.ActivatedAt,
		&res.CompletedBy,
		&res.CompletedAt,
		&res.CancelledBy,
		&res.CancelledAt,
	)
	if err != nil {
		return domain.Reservation{}, err
	}
	res.RequesterCategory = domain.RequesterCategory(category)
	res.Date = domain.Date(date)
	res.Start = domain.TimeOfDay(start)
	res.End = domain.TimeOfDay(end)
	res.State = domain.State(state)
	return res, nil
}

func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	return r.getReservation(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
}

// GetReservationForUpdate row-locks the reservation until the transaction ends.
func (r *ReservationRepository) GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error) {
	return r.getReservation(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id)
}

func (r *ReservationRepository) getReservation(ctx context.Context, query, id string) (domain.Reservation, error) {
	res, err := scanReservation(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

func (r *ReservationRepository) ListOccupying(ctx context.Context, roomID string, date domain.Date) ([]domain.Reservation, error) {
	return r.ListReservations(ctx, domain.ReservationFilter{
		RoomID: roomID,
		Date:   date,
		States: domain.OccupyingStates,
	})
}

func (r *ReservationRepository) ListReservations(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.RoomID != "" {
		add("room_id = $%d", filter.RoomID)
	}
	if filter.RequesterID != "" {
		add("requester_id = $%d", filter.RequesterID)
	}
	if filter.Date != "" {
		add("date = $%d::date", filter.Date.String())
	}
	if filter.DateTo != "" {
		add("date <= $%d::date", filter.DateTo.String())
	}
	if len(filter.States) > 0 {
		states := make([]string, 0, len(filter.States))
		for _, s := range filter.States {
			states = append(states, string(s))
		}
		add("state = ANY($%d)", states)
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY date ASC, start_minute ASC, created_at ASC`

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate reservations: %w", err)
	}
	return out, nil
}

func (r *ReservationRepository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (
	id, room_id, requester_id, requester_name, requester_email, requester_phone, requester_category,
	date, start_minute, end_minute, purpose, notes, attendees, state, version, created_by, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.exec(ctx, stmt,
		res.ID,
		res.RoomID,
		res.RequesterID,
		res.RequesterName,
		res.RequesterEmail,
		res.RequesterPhone,
		string(res.RequesterCategory),
		res.Date.String(),
		int(res.Start),
		int(res.End),
		res.Purpose,
		res.Notes,
		res.Attendees,
		string(res.State),
		res.Version,
		res.CreatedBy,
		res.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrRoomNotFound
		}
		if isUniqueViolation(err) {
			return domain.ErrStaleReservation
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) UpdateReservation(ctx context.Context, res domain.Reservation) error {
	const stmt = `
UPDATE reservations
SET state = $3, version = version + 1,
	approved_by = $4, approved_at = $5,
	rejected_by = $6, rejected_at = $7, rejection_reason = $8,
	activated_at = $9,
	completed_by = $10, completed_at = $11,
	cancelled_by = $12, cancelled_at = $13,
	notes = $14
WHERE id = $1 AND version = $2`

	tag, err := r.exec(ctx, stmt,
		res.ID,
		res.Version,
		string(res.State),
		res.ApprovedBy,
		res.ApprovedAt,
		res.RejectedBy,
		res.RejectedAt,
		res.RejectionReason,
		res.ActivatedAt,
		res.CompletedBy,
		res.CompletedAt,
		res.CancelledBy,
		res.CancelledAt,
		res.Notes,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetReservation(ctx, res.ID); err != nil {
			return err
		}
		return domain.ErrStaleReservation
	}
	return nil
}

func (r *ReservationRepository) AppendHistory(ctx context.Context, e domain.HistoryEntry) error {
	const stmt = `
INSERT INTO reservation_history (reservation_id, from_state, to_state, actor_id, note, at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.exec(ctx, stmt, e.ReservationID, string(e.From), string(e.To), e.ActorID, e.Note, e.At)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrReservationNotFound
		}
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (r *ReservationRepository) ListHistory(ctx context.Context, reservationID string) ([]domain.HistoryEntry, error) {
	const query = `
SELECT reservation_id, from_state, to_state, actor_id, note, at
FROM reservation_history
WHERE reservation_id = $1
ORDER BY id ASC`
	rows, err := r.query(ctx, query, reservationID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var (
			e        domain.HistoryEntry
			from, to string
			at       time.Time
		)
		if err := rows.Scan(&e.ReservationID, &from, &to, &e.ActorID, &e.Note, &at); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.From = domain.State(from)
		e.To = domain.State(to)
		e.At = at
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}
