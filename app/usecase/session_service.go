package usecase

import (
	"context"
	"fmt"

	"appforge/internal/domain/entity"
	"appforge/internal/domain/repository"
)

type SessionUsecase interface {
	Submit(ctx context.Context, req entity.CodeRequest) (*entity.Session, error)
	GetSession(ctx context.Context, id string) (*entity.Session, error)
	ListSessions(ctx context.Context) ([]*entity.Session, error)
	WatchSession(ctx context.Context, id string) (<-chan entity.Session, error)
}

var _ SessionUsecase = (*SessionService)(nil)

// SessionService is the read side of the session registry plus intake.
type SessionService struct {
	generator *GenerationService
	sessions  repository.SessionRepository
}

func NewSessionService(g *GenerationService, sr repository.SessionRepository) *SessionService {
	return &SessionService{generator: g, sessions: sr}
}

func (u *SessionService) Submit(ctx context.Context, req entity.CodeRequest) (*entity.Session, error) {
	return u.generator.Submit(ctx, req)
}

func (u *SessionService) GetSession(ctx context.Context, id string) (*entity.Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session id is required")
	}
	return u.sessions.GetByID(ctx, id)
}

func (u *SessionService) ListSessions(ctx context.Context) ([]*entity.Session, error) {
	sessions, err := u.sessions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (u *SessionService) WatchSession(ctx context.Context, id string) (<-chan entity.Session, error) {
	return u.sessions.Subscribe(ctx, id)
}
