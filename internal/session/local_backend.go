package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// LocalBackend holds every session in an in-process map guarded by a single
// RWMutex. It is the default Backend: no session survives a process
// restart, matching the no-cross-restart-resumption guarantee the code-mode
// session model provides.
type LocalBackend struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewLocalBackend returns an empty LocalBackend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{sessions: make(map[uuid.UUID]*Session)}
}

var _ Backend = (*LocalBackend)(nil)

func (b *LocalBackend) Get(_ context.Context, id uuid.UUID) (*Session, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session: %s not found", id)
	}
	return s, nil
}

func (b *LocalBackend) Insert(_ context.Context, s *Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.sessions[s.ID]; exists {
		return fmt.Errorf("session: %s already exists", s.ID)
	}
	b.sessions[s.ID] = s
	return nil
}

func (b *LocalBackend) Update(_ context.Context, s *Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.sessions[s.ID]; !exists {
		return fmt.Errorf("session: %s not found", s.ID)
	}
	b.sessions[s.ID] = s
	return nil
}

func (b *LocalBackend) Delete(_ context.Context, id uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, id)
	return nil
}

func (b *LocalBackend) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.sessions[id]
	return ok, nil
}

func (b *LocalBackend) Count(_ context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions), nil
}

func (b *LocalBackend) List(_ context.Context) ([]*Session, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Session, 0, len(b.sessions))
	for _, s := range b.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (b *LocalBackend) PostExecution(_ context.Context, _ uuid.UUID, _ bool) error {
	return nil
}
