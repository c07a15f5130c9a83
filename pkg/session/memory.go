package session

import (
	"context"
	"sync"

	"github.com/xhad/trafficlaw/internal/models"
)

// MemoryStore keeps history in process memory. History is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]models.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]models.Message)}
}

func (s *MemoryStore) History(ctx context.Context, id string, maxTurns int) ([]models.Message, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lastTurns(s.sessions[id], maxTurns), nil
}

func (s *MemoryStore) Append(ctx context.Context, id string, msgs ...models.Message) error {
	if err := validID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = append(s.sessions[id], msgs...)
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
