package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"spotai-game-service/internal/app"
)

// RoundTimerStore keeps per-(session, round) start timestamps with a short
// TTL so abandoned rounds never accumulate.
type RoundTimerStore struct {
	client *redis.Client
}

func NewRoundTimerStore(client *redis.Client) *RoundTimerStore {
	return &RoundTimerStore{client: client}
}

func (s *RoundTimerStore) RecordStart(ctx context.Context, sessionID string, round int, at time.Time) error {
	return s.client.Set(ctx, roundStartKey(sessionID, round), at.UnixMilli(), app.RoundStartTTL).Err()
}

func (s *RoundTimerStore) GetStart(ctx context.Context, sessionID string, round int) (time.Time, bool, error) {
	data, err := s.client.Get(ctx, roundStartKey(sessionID, round)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms), true, nil
}

func (s *RoundTimerStore) ClearStart(ctx context.Context, sessionID string, round int) error {
	return s.client.Del(ctx, roundStartKey(sessionID, round)).Err()
}
