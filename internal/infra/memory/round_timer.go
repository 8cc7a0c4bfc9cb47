package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"spotai-game-service/internal/app"
)

// RoundTimerStore is an in-memory implementation of app.RoundTimerStore with
// TTL semantics matching the Redis one.
type RoundTimerStore struct {
	mu     sync.RWMutex
	starts map[string]timedStart
	now    func() time.Time
}

type timedStart struct {
	at        time.Time
	expiresAt time.Time
}

func NewRoundTimerStore() *RoundTimerStore {
	return &RoundTimerStore{starts: make(map[string]timedStart), now: time.Now}
}

// NewRoundTimerStoreWithClock is test-only for deterministic expiry.
func NewRoundTimerStoreWithClock(now func() time.Time) *RoundTimerStore {
	return &RoundTimerStore{starts: make(map[string]timedStart), now: now}
}

func startKey(sessionID string, round int) string {
	return fmt.Sprintf("%s:%d", sessionID, round)
}

func (s *RoundTimerStore) RecordStart(_ context.Context, sessionID string, round int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts[startKey(sessionID, round)] = timedStart{at: at, expiresAt: s.now().Add(app.RoundStartTTL)}
	return nil
}

func (s *RoundTimerStore) GetStart(_ context.Context, sessionID string, round int) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.starts[startKey(sessionID, round)]
	if !ok || s.now().After(entry.expiresAt) {
		return time.Time{}, false, nil
	}
	return entry.at, true, nil
}

func (s *RoundTimerStore) ClearStart(_ context.Context, sessionID string, round int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.starts, startKey(sessionID, round))
	return nil
}
