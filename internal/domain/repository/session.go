package repository

import (
	"context"

	"appforge/internal/domain/entity"
)

// SessionRepository keeps the in-process view of generation sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	List(ctx context.Context) ([]*entity.Session, error)
	Update(ctx context.Context, session *entity.Session) error
	Subscribe(ctx context.Context, id string) (<-chan entity.Session, error)
}
