package memory

import (
	"context"
	"sort"
	"sync"

	"spotai-game-service/internal/domain"
)

// Leaderboard is an in-memory implementation of app.Leaderboard. It keeps the
// best-score-wins semantics but has no legacy format to migrate, so
// Consolidate always reports a clean board.
type Leaderboard struct {
	mu     sync.RWMutex
	boards map[domain.LeaderboardType]map[string]domain.LeaderboardEntry
}

func NewLeaderboard() *Leaderboard {
	boards := make(map[domain.LeaderboardType]map[string]domain.LeaderboardEntry)
	for _, typ := range domain.LeaderboardTypes {
		boards[typ] = make(map[string]domain.LeaderboardEntry)
	}
	return &Leaderboard{boards: boards}
}

func (l *Leaderboard) AddScore(_ context.Context, entry domain.LeaderboardEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, typ := range domain.LeaderboardTypes {
		existing, ok := l.boards[typ][entry.UserID]
		if ok && entry.Score <= existing.Score {
			continue
		}
		l.boards[typ][entry.UserID] = entry
	}
	return nil
}

func (l *Leaderboard) Get(_ context.Context, typ domain.LeaderboardType, limit, offset int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	l.mu.RLock()
	ranked := l.rankedLocked(typ)
	l.mu.RUnlock()

	if offset >= len(ranked) {
		return []domain.LeaderboardEntry{}, nil
	}
	end := offset + limit
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[offset:end], nil
}

func (l *Leaderboard) UserRank(_ context.Context, typ domain.LeaderboardType, userID string) (*domain.UserRank, error) {
	l.mu.RLock()
	ranked := l.rankedLocked(typ)
	l.mu.RUnlock()

	for _, entry := range ranked {
		if entry.UserID == userID {
			return &domain.UserRank{Rank: entry.Rank, Score: entry.Score, TotalUsers: len(ranked)}, nil
		}
	}
	return nil, nil
}

func (l *Leaderboard) ParticipantCount(_ context.Context, typ domain.LeaderboardType) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.boards[typ]), nil
}

func (l *Leaderboard) Consolidate(_ context.Context, typ domain.LeaderboardType) (domain.ConsolidationReport, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	count := len(l.boards[typ])
	return domain.ConsolidationReport{OriginalCount: count, ConsolidatedCount: count}, nil
}

func (l *Leaderboard) rankedLocked(typ domain.LeaderboardType) []domain.LeaderboardEntry {
	board := l.boards[typ]
	ranked := make([]domain.LeaderboardEntry, 0, len(board))
	for _, entry := range board {
		ranked = append(ranked, entry)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].UserID < ranked[j].UserID
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
