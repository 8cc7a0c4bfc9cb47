package app

import (
	"sync"

	"github.com/sirupsen/logrus"

	"spotai-game-service/internal/domain"
)

// LeaderboardUpdate is the payload pushed to realtime subscribers after a
// score lands.
type LeaderboardUpdate struct {
	Type    domain.LeaderboardType   `json:"type"`
	Entries []domain.LeaderboardEntry `json:"entries"`
}

// Hub fans leaderboard updates out to realtime subscribers. Publishing is
// fire-and-forget: a slow or dead subscriber never blocks the publisher, and
// a panic in the fan-out never reaches the caller.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan LeaderboardUpdate]domain.LeaderboardType
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan LeaderboardUpdate]domain.LeaderboardType)}
}

// Subscribe registers a listener for one leaderboard type. The caller must
// invoke the returned cancel function to avoid leaks.
func (h *Hub) Subscribe(typ domain.LeaderboardType) (<-chan LeaderboardUpdate, func()) {
	ch := make(chan LeaderboardUpdate, 8)

	h.mu.Lock()
	h.subscribers[ch] = typ
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an update to every subscriber of the matching type,
// dropping the stale pending update when a subscriber's buffer is full.
func (h *Hub) Publish(update LeaderboardUpdate) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("leaderboard broadcast panicked: %v", r)
		}
	}()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch, typ := range h.subscribers {
		if typ != update.Type {
			continue
		}
		select {
		case ch <- update:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- update:
			default:
			}
		}
	}
}

// SubscriberCount reports active listeners, mainly for tests.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
