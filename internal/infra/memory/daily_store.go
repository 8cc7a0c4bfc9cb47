package memory

import (
	"context"
	"sync"

	"spotai-game-service/internal/domain"
)

// DailyStore is an in-memory implementation of app.DailyStore.
type DailyStore struct {
	mu          sync.RWMutex
	games       map[string]domain.DailyGame
	completions map[string]domain.DailyCompletion
}

func NewDailyStore() *DailyStore {
	return &DailyStore{
		games:       make(map[string]domain.DailyGame),
		completions: make(map[string]domain.DailyCompletion),
	}
}

func (s *DailyStore) GetDailyGame(_ context.Context, date string) (*domain.DailyGame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[date]
	if !ok {
		return nil, nil
	}
	copied := game
	return &copied, nil
}

func (s *DailyStore) SaveDailyGame(_ context.Context, game *domain.DailyGame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// first writer wins, matching the Redis SetNX behavior
	if _, ok := s.games[game.Date]; !ok {
		s.games[game.Date] = *game
	}
	return nil
}

func (s *DailyStore) GetCompletion(_ context.Context, userID, date string) (*domain.DailyCompletion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	completion, ok := s.completions[userID+":"+date]
	if !ok {
		return nil, nil
	}
	copied := completion
	return &copied, nil
}

func (s *DailyStore) SaveCompletion(_ context.Context, completion *domain.DailyCompletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completions[completion.UserID+":"+completion.Date] = *completion
	return nil
}
