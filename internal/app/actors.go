package app

import (
	"context"

	"github.com/cimillas/room-booking/internal/domain"
)

// ActorDirectory resolves authenticated identities to actors with roles.
type ActorDirectory interface {
	GetActor(ctx context.Context, id string) (domain.Actor, error)
}
