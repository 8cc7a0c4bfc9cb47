package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"spotai-game-service/internal/domain"
)

// SessionStore persists game sessions as JSON documents with a TTL, so stale
// sessions clean themselves up without an explicit reaper.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) SaveSession(ctx context.Context, session *domain.GameSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(session.UserID, session.SessionID), data, s.ttl).Err()
}

func (s *SessionStore) GetSession(ctx context.Context, userID, sessionID string) (*domain.GameSession, error) {
	data, err := s.client.Get(ctx, sessionKey(userID, sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session domain.GameSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, userID, sessionID string) error {
	return s.client.Del(ctx, sessionKey(userID, sessionID)).Err()
}
