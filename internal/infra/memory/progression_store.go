package memory

import (
	"context"
	"sync"

	"quranverse-quiz-service/internal/domain"
)

// ProgressionStore keeps learner progression in process memory.
type ProgressionStore struct {
	mu    sync.Mutex
	users map[string]domain.Progression
}

func NewProgressionStore() *ProgressionStore {
	return &ProgressionStore{users: make(map[string]domain.Progression)}
}

// Seed installs a starting snapshot, e.g. a demo learner.
func (s *ProgressionStore) Seed(p domain.Progression) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[p.UserID] = p
}

func (s *ProgressionStore) Apply(_ context.Context, update domain.ProgressionUpdate) (domain.Progression, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.users[update.UserID].Apply(update)
	s.users[update.UserID] = p
	return p, nil
}

func (s *ProgressionStore) Get(_ context.Context, userID string) (domain.Progression, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.users[userID]
	if !ok {
		return domain.Progression{UserID: userID}, nil
	}
	return p, nil
}
