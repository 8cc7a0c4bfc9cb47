package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"spotai-game-service/internal/domain"
)

// playLimitBuffer keeps the day's record around a little past UTC midnight so
// late completions can still update the best score.
const playLimitBuffer = 2 * time.Hour

// PlayLimitStore persists per-user per-day attempt records. Records expire at
// the end of the UTC day plus a buffer.
type PlayLimitStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewPlayLimitStore(client *redis.Client) *PlayLimitStore {
	return &PlayLimitStore{client: client, now: time.Now}
}

// NewPlayLimitStoreWithClock is test-only for deterministic TTLs.
func NewPlayLimitStoreWithClock(client *redis.Client, now func() time.Time) *PlayLimitStore {
	return &PlayLimitStore{client: client, now: now}
}

func (s *PlayLimitStore) GetLimit(ctx context.Context, userID, date string) (*domain.UserPlayLimit, error) {
	data, err := s.client.Get(ctx, playLimitKey(userID, date)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var limit domain.UserPlayLimit
	if err := json.Unmarshal([]byte(data), &limit); err != nil {
		return nil, err
	}
	return &limit, nil
}

func (s *PlayLimitStore) SaveLimit(ctx context.Context, limit *domain.UserPlayLimit) error {
	data, err := json.Marshal(limit)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, playLimitKey(limit.UserID, limit.Date), data, s.ttlFor()).Err()
}

func (s *PlayLimitStore) ttlFor() time.Duration {
	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	ttl := midnight.Sub(now) + playLimitBuffer
	if ttl <= 0 {
		ttl = playLimitBuffer
	}
	return ttl
}
