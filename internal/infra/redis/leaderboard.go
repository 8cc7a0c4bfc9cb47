package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"spotai-game-service/internal/app"
	"spotai-game-service/internal/domain"
)

const (
	dailyBoardTTL  = 48 * time.Hour
	weeklyBoardTTL = 8 * 24 * time.Hour

	// Auto-consolidation cadence: after this many score additions, or on a
	// read once this much time has passed since the last run.
	autoConsolidateEvery = 50
	autoConsolidateAfter = 10 * time.Minute
)

// Leaderboard maintains the daily/weekly/all-time sorted sets plus the
// per-user metadata hash. Only the best score per user survives on each
// board.
type Leaderboard struct {
	client *redis.Client
	now    func() time.Time

	addCount         atomic.Int64
	lastConsolidated atomic.Int64 // unix nano
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	lb := &Leaderboard{client: client, now: time.Now}
	lb.lastConsolidated.Store(time.Now().UnixNano())
	return lb
}

// NewLeaderboardWithClock is test-only for deterministic period keys.
func NewLeaderboardWithClock(client *redis.Client, now func() time.Time) *Leaderboard {
	lb := NewLeaderboard(client)
	lb.now = now
	return lb
}

func (l *Leaderboard) key(typ domain.LeaderboardType) string {
	switch typ {
	case domain.LeaderboardDaily:
		return leaderboardKey(typ, app.DateKey(l.now()))
	case domain.LeaderboardWeekly:
		return leaderboardKey(typ, app.WeekKey(l.now()))
	default:
		return leaderboardKey(domain.LeaderboardAllTime, "")
	}
}

func boardTTL(typ domain.LeaderboardType) time.Duration {
	switch typ {
	case domain.LeaderboardDaily:
		return dailyBoardTTL
	case domain.LeaderboardWeekly:
		return weeklyBoardTTL
	default:
		return 0 // all-time never expires
	}
}

// AddScore upserts the entry into all three boards independently: a board is
// only touched when the user is absent or the new score is strictly higher.
// The metadata hash is refreshed on any upsert.
func (l *Leaderboard) AddScore(ctx context.Context, entry domain.LeaderboardEntry) error {
	var errs []error
	for _, typ := range domain.LeaderboardTypes {
		if err := l.upsert(ctx, typ, entry); err != nil {
			errs = append(errs, err)
		}
	}
	l.afterAdd()
	return errors.Join(errs...)
}

func (l *Leaderboard) upsert(ctx context.Context, typ domain.LeaderboardType, entry domain.LeaderboardEntry) error {
	key := l.key(typ)

	existing, err := l.client.ZScore(ctx, key, entry.UserID).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// absent, upsert below
	case err != nil:
		return err
	case float64(entry.Score) <= existing:
		return nil // best score stands
	}

	pipe := l.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(entry.Score), Member: entry.UserID})
	l.writeMetadata(ctx, pipe, entry)
	if ttl := boardTTL(typ); ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (l *Leaderboard) writeMetadata(ctx context.Context, pipe redis.Pipeliner, entry domain.LeaderboardEntry) {
	pipe.HSet(ctx, userDataKey(entry.UserID),
		"username", entry.Username,
		"correctCount", entry.CorrectCount,
		"timeBonus", entry.TimeBonus,
		"completedAt", entry.CompletedAt,
		"badge", string(entry.Badge),
	)
}

// Get returns entries ordered by descending score, rank assigned by position.
// Legacy members stored as serialized JSON blobs are migrated in place and
// still served, so historical boards stay usable without a batch migration.
func (l *Leaderboard) Get(ctx context.Context, typ domain.LeaderboardType, limit, offset int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	key := l.key(typ)

	zs, err := l.client.ZRevRangeWithScores(ctx, key, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(zs))
	for i, z := range zs {
		member, _ := z.Member.(string)
		userID := member

		if legacy := parseLegacyMember(member); legacy != nil {
			userID = legacy.UserID
			if err := l.migrateLegacyMember(ctx, key, member, legacy); err != nil {
				logrus.Warnf("leaderboard: failed to migrate legacy entry on %s: %v", key, err)
			}
			entries = append(entries, domain.LeaderboardEntry{
				Rank:         offset + i + 1,
				UserID:       legacy.UserID,
				Username:     legacy.Username,
				Score:        legacy.Score,
				CorrectCount: legacy.CorrectCount,
				TimeBonus:    legacy.TimeBonus,
				CompletedAt:  legacy.CompletedAt,
				Badge:        domain.BadgeTier(legacy.Badge),
			})
			continue
		}

		entry := domain.LeaderboardEntry{
			Rank:   offset + i + 1,
			UserID: userID,
			Score:  int(z.Score),
		}
		l.fillMetadata(ctx, &entry)
		entries = append(entries, entry)
	}

	l.maybeConsolidateOnRead()
	return entries, nil
}

// fillMetadata hydrates an entry from the user's metadata hash, falling back
// to the user id as the display name when the hash is missing.
func (l *Leaderboard) fillMetadata(ctx context.Context, entry *domain.LeaderboardEntry) {
	fields, err := l.client.HGetAll(ctx, userDataKey(entry.UserID)).Result()
	if err != nil || len(fields) == 0 {
		entry.Username = entry.UserID
		return
	}
	entry.Username = fields["username"]
	if entry.Username == "" {
		entry.Username = entry.UserID
	}
	entry.CorrectCount, _ = strconv.Atoi(fields["correctCount"])
	entry.TimeBonus, _ = strconv.Atoi(fields["timeBonus"])
	entry.CompletedAt, _ = strconv.ParseInt(fields["completedAt"], 10, 64)
	entry.Badge = domain.BadgeTier(fields["badge"])
}

// UserRank returns the user's 1-based rank, score and the participant count,
// or nil when the user is absent from the board.
func (l *Leaderboard) UserRank(ctx context.Context, typ domain.LeaderboardType, userID string) (*domain.UserRank, error) {
	key := l.key(typ)

	rank, err := l.client.ZRevRank(ctx, key, userID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	score, err := l.client.ZScore(ctx, key, userID).Result()
	if err != nil {
		return nil, err
	}
	total, err := l.client.ZCard(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	return &domain.UserRank{Rank: int(rank) + 1, Score: int(score), TotalUsers: int(total)}, nil
}

// ParticipantCount returns the number of distinct users on the board.
func (l *Leaderboard) ParticipantCount(ctx context.Context, typ domain.LeaderboardType) (int, error) {
	count, err := l.client.ZCard(ctx, l.key(typ)).Result()
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// Consolidate collapses duplicate per-user entries (bare ids plus legacy JSON
// blobs) to the single best score. Idempotent: a second run with no new data
// removes nothing.
func (l *Leaderboard) Consolidate(ctx context.Context, typ domain.LeaderboardType) (domain.ConsolidationReport, error) {
	key := l.key(typ)

	zs, err := l.client.ZRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		return domain.ConsolidationReport{}, err
	}

	type candidate struct {
		score  float64
		legacy *legacyMember
	}
	best := make(map[string]candidate)
	var blobs []string

	for _, z := range zs {
		member, _ := z.Member.(string)
		userID := member
		legacy := parseLegacyMember(member)
		if legacy != nil {
			userID = legacy.UserID
			blobs = append(blobs, member)
		}
		score := z.Score
		if legacy != nil && float64(legacy.Score) > score {
			score = float64(legacy.Score)
		}
		cur, ok := best[userID]
		if !ok || score > cur.score {
			best[userID] = candidate{score: score, legacy: legacy}
		}
	}

	pipe := l.client.Pipeline()
	for _, blob := range blobs {
		pipe.ZRem(ctx, key, blob)
	}
	for userID, c := range best {
		pipe.ZAdd(ctx, key, redis.Z{Score: c.score, Member: userID})
		if c.legacy != nil {
			l.writeMetadata(ctx, pipe, domain.LeaderboardEntry{
				UserID:       userID,
				Username:     c.legacy.Username,
				Score:        c.legacy.Score,
				CorrectCount: c.legacy.CorrectCount,
				TimeBonus:    c.legacy.TimeBonus,
				CompletedAt:  c.legacy.CompletedAt,
				Badge:        domain.BadgeTier(c.legacy.Badge),
			})
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.ConsolidationReport{}, err
	}

	return domain.ConsolidationReport{
		OriginalCount:     len(zs),
		ConsolidatedCount: len(best),
		DuplicatesRemoved: len(zs) - len(best),
	}, nil
}

// legacyMember is the old storage format: the whole entry serialized as the
// sorted-set member instead of a bare user id.
type legacyMember struct {
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	Score        int    `json:"score"`
	CorrectCount int    `json:"correctCount"`
	TimeBonus    int    `json:"timeBonus"`
	CompletedAt  int64  `json:"completedAt"`
	Badge        string `json:"badge"`
}

func parseLegacyMember(member string) *legacyMember {
	if !strings.HasPrefix(member, "{") {
		return nil
	}
	var legacy legacyMember
	if err := json.Unmarshal([]byte(member), &legacy); err != nil || legacy.UserID == "" {
		return nil
	}
	return &legacy
}

// migrateLegacyMember rewrites one blob member into the current userId-keyed
// format, keeping whichever score is higher if the user already has a bare
// entry.
func (l *Leaderboard) migrateLegacyMember(ctx context.Context, key, member string, legacy *legacyMember) error {
	score := float64(legacy.Score)
	existing, err := l.client.ZScore(ctx, key, legacy.UserID).Result()
	if err == nil && existing > score {
		score = existing
	} else if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := l.client.Pipeline()
	pipe.ZRem(ctx, key, member)
	pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: legacy.UserID})
	l.writeMetadata(ctx, pipe, domain.LeaderboardEntry{
		UserID:       legacy.UserID,
		Username:     legacy.Username,
		Score:        legacy.Score,
		CorrectCount: legacy.CorrectCount,
		TimeBonus:    legacy.TimeBonus,
		CompletedAt:  legacy.CompletedAt,
		Badge:        domain.BadgeTier(legacy.Badge),
	})
	_, err = pipe.Exec(ctx)
	return err
}

// afterAdd triggers a background consolidation every N additions. Best
// effort: failures are logged and never reach the caller of AddScore.
func (l *Leaderboard) afterAdd() {
	if l.addCount.Add(1)%autoConsolidateEvery != 0 {
		return
	}
	go l.consolidateAll()
}

// maybeConsolidateOnRead triggers a background consolidation when enough time
// has passed since the last run.
func (l *Leaderboard) maybeConsolidateOnRead() {
	last := l.lastConsolidated.Load()
	if time.Since(time.Unix(0, last)) < autoConsolidateAfter {
		return
	}
	if !l.lastConsolidated.CompareAndSwap(last, time.Now().UnixNano()) {
		return // another reader already claimed the run
	}
	go l.consolidateAll()
}

func (l *Leaderboard) consolidateAll() {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("auto-consolidation panicked: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, typ := range domain.LeaderboardTypes {
		report, err := l.Consolidate(ctx, typ)
		if err != nil {
			logrus.Warnf("auto-consolidation failed for %s: %v", typ, err)
			continue
		}
		if report.DuplicatesRemoved > 0 {
			logrus.Infof("auto-consolidation removed %d duplicates from %s", report.DuplicatesRemoved, typ)
		}
	}
	l.lastConsolidated.Store(time.Now().UnixNano())
}
