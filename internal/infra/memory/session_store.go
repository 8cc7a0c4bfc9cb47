package memory

import (
	"context"
	"encoding/json"
	"sync"

	"spotai-game-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore. Sessions
// are stored as deep copies so callers can't mutate stored state by aliasing.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.GameSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*domain.GameSession)}
}

func sessionKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}

func (s *SessionStore) SaveSession(_ context.Context, session *domain.GameSession) error {
	copied, err := copySession(session)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionKey(session.UserID, session.SessionID)] = copied
	return nil
}

func (s *SessionStore) GetSession(_ context.Context, userID, sessionID string) (*domain.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionKey(userID, sessionID)]
	if !ok {
		return nil, nil
	}
	return copySession(session)
}

func (s *SessionStore) DeleteSession(_ context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionKey(userID, sessionID))
	return nil
}

func copySession(session *domain.GameSession) (*domain.GameSession, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	var copied domain.GameSession
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, err
	}
	return &copied, nil
}
