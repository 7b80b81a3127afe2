package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"appforge/internal/domain/entity"
	"appforge/internal/domain/repository"
)

const subscriberBuffer = 16

// SessionRepo is the in-process session registry. Nothing is persisted.
type SessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]entity.Session
	subs     map[string]map[chan entity.Session]struct{}
}

var _ repository.SessionRepository = (*SessionRepo)(nil)

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{
		sessions: make(map[string]entity.Session),
		subs:     make(map[string]map[chan entity.Session]struct{}),
	}
}

func (r *SessionRepo) Create(_ context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; ok {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	r.sessions[session.ID] = *session
	return nil
}

func (r *SessionRepo) GetByID(_ context.Context, id string) (*entity.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrSessionNotFound, id)
	}
	return &s, nil
}

// List returns sessions ordered by creation time, newest first.
func (r *SessionRepo) List(_ context.Context) ([]*entity.Session, error) {
	r.mu.RLock()
	out := make([]*entity.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		s := s
		out = append(out, &s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *SessionRepo) Update(_ context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; !ok {
		return fmt.Errorf("%w: %s", entity.ErrSessionNotFound, session.ID)
	}
	snapshot := *session
	r.sessions[session.ID] = snapshot

	for ch := range r.subs[session.ID] {
		select {
		case ch <- snapshot:
		default:
			// slow subscriber; it re-reads the session on close
		}
		if snapshot.Status.IsTerminal() {
			close(ch)
			delete(r.subs[session.ID], ch)
		}
	}
	if snapshot.Status.IsTerminal() {
		delete(r.subs, session.ID)
	}
	return nil
}

// Subscribe streams snapshots of the session on every update. The channel is
// closed once the session reaches a terminal status or ctx is done.
func (r *SessionRepo) Subscribe(ctx context.Context, id string) (<-chan entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", entity.ErrSessionNotFound, id)
	}

	ch := make(chan entity.Session, subscriberBuffer)
	if s.Status.IsTerminal() {
		close(ch)
		return ch, nil
	}
	if r.subs[id] == nil {
		r.subs[id] = make(map[chan entity.Session]struct{})
	}
	r.subs[id][ch] = struct{}{}

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.subs[id][ch]; ok {
			delete(r.subs[id], ch)
			close(ch)
		}
	}()

	return ch, nil
}
