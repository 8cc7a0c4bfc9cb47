package memory

import (
	"context"
	"sync"

	"spotai-game-service/internal/domain"
)

// PlayLimitStore is an in-memory implementation of app.PlayLimitStore.
type PlayLimitStore struct {
	mu     sync.RWMutex
	limits map[string]domain.UserPlayLimit
}

func NewPlayLimitStore() *PlayLimitStore {
	return &PlayLimitStore{limits: make(map[string]domain.UserPlayLimit)}
}

func limitKey(userID, date string) string {
	return userID + ":" + date
}

func (s *PlayLimitStore) GetLimit(_ context.Context, userID, date string) (*domain.UserPlayLimit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	limit, ok := s.limits[limitKey(userID, date)]
	if !ok {
		return nil, nil
	}
	copied := limit
	return &copied, nil
}

func (s *PlayLimitStore) SaveLimit(_ context.Context, limit *domain.UserPlayLimit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits[limitKey(limit.UserID, limit.Date)] = *limit
	return nil
}
