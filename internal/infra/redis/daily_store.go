package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"spotai-game-service/internal/domain"
)

// dailyRecordTTL covers the record's own day plus the following one, so the
// has-played-today check still works across midnight boundaries.
const dailyRecordTTL = 48 * time.Hour

// DailyStore persists the shared daily category pool and per-user completion
// summaries.
type DailyStore struct {
	client *redis.Client
}

func NewDailyStore(client *redis.Client) *DailyStore {
	return &DailyStore{client: client}
}

func (s *DailyStore) GetDailyGame(ctx context.Context, date string) (*domain.DailyGame, error) {
	data, err := s.client.Get(ctx, dailyGameKey(date)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var game domain.DailyGame
	if err := json.Unmarshal([]byte(data), &game); err != nil {
		return nil, err
	}
	return &game, nil
}

func (s *DailyStore) SaveDailyGame(ctx context.Context, game *domain.DailyGame) error {
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}
	// SetNX so two racing initializers agree on one line-up.
	ok, err := s.client.SetNX(ctx, dailyGameKey(game.Date), data, dailyRecordTTL).Result()
	if err != nil {
		return err
	}
	_ = ok
	return nil
}

func (s *DailyStore) GetCompletion(ctx context.Context, userID, date string) (*domain.DailyCompletion, error) {
	data, err := s.client.Get(ctx, completionKey(userID, date)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var completion domain.DailyCompletion
	if err := json.Unmarshal([]byte(data), &completion); err != nil {
		return nil, err
	}
	return &completion, nil
}

func (s *DailyStore) SaveCompletion(ctx context.Context, completion *domain.DailyCompletion) error {
	data, err := json.Marshal(completion)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, completionKey(completion.UserID, completion.Date), data, dailyRecordTTL).Err()
}
