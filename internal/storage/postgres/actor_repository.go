package postgres

import (
	"context"
	"fmt"

	"github.com/cimillas/room-booking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ActorRepository resolves user ids to actors from the users table.
type ActorRepository struct {
	db
}

func NewActorRepository(pool *pgxpool.Pool) *ActorRepository {
	return &ActorRepository{db: db{pool: pool}}
}

func (r *ActorRepository) GetActor(ctx context.Context, id string) (domain.Actor, error) {
	const query = `SELECT id, name, role FROM users WHERE id = $1`
	var (
		a    domain.Actor
		role string
	)
	if err := r.queryRow(ctx, query, id).Scan(&a.ID, &a.Name, &role); err != nil {
		if isInvalidUUID(err) {
			return domain.Actor{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Actor{}, domain.ErrActorNotFound
		}
		return domain.Actor{}, fmt.Errorf("get actor: %w", err)
	}
	a.Role = domain.Role(role)
	return a, nil
}

func (r *ActorRepository) CreateActor(ctx context.Context, a domain.Actor) error {
	const stmt = `INSERT INTO users (id, name, role) VALUES ($1, $2, $3)`
	if _, err := r.exec(ctx, stmt, a.ID, a.Name, string(a.Role)); err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("create actor %s: already exists", a.ID)
		}
		return fmt.Errorf("create actor: %w", err)
	}
	return nil
}
