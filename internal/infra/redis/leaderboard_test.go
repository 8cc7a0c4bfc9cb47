package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"spotai-game-service/internal/domain"
)

var boardClock = time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

func newTestLeaderboard(t *testing.T) (*Leaderboard, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewLeaderboardWithClock(client, func() time.Time { return boardClock }), mr
}

func entry(userID string, score int) domain.LeaderboardEntry {
	return domain.LeaderboardEntry{
		UserID:       userID,
		Username:     "name-" + userID,
		Score:        score,
		CorrectCount: score / 15,
		TimeBonus:    score % 15,
		CompletedAt:  boardClock.UnixMilli(),
		Badge:        domain.BadgeJustHuman,
	}
}

func TestAddScoreKeepsBestPerUser(t *testing.T) {
	ctx := context.Background()
	lb, _ := newTestLeaderboard(t)

	if err := lb.AddScore(ctx, entry("u1", 80)); err != nil {
		t.Fatalf("add 80: %v", err)
	}
	if err := lb.AddScore(ctx, entry("u1", 60)); err != nil {
		t.Fatalf("add 60: %v", err)
	}

	rank, err := lb.UserRank(ctx, domain.LeaderboardDaily, "u1")
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if rank == nil || rank.Score != 80 {
		t.Fatalf("lower score must not overwrite, got %+v", rank)
	}

	if err := lb.AddScore(ctx, entry("u1", 95)); err != nil {
		t.Fatalf("add 95: %v", err)
	}
	rank, err = lb.UserRank(ctx, domain.LeaderboardDaily, "u1")
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if rank.Score != 95 {
		t.Fatalf("higher score must win, got %+v", rank)
	}
}

func TestAddScoreWritesAllThreeBoards(t *testing.T) {
	ctx := context.Background()
	lb, mr := newTestLeaderboard(t)

	if err := lb.AddScore(ctx, entry("u1", 75)); err != nil {
		t.Fatalf("add: %v", err)
	}

	for _, key := range []string{
		"leaderboard:daily:2026-08-31",
		"leaderboard:weekly:2026-W36",
		"leaderboard:alltime",
	} {
		if !mr.Exists(key) {
			t.Fatalf("expected %s to exist", key)
		}
	}
	if !mr.Exists("user_data:u1") {
		t.Fatalf("expected metadata hash to exist")
	}
	if ttl := mr.TTL("leaderboard:alltime"); ttl != 0 {
		t.Fatalf("alltime board must not expire, ttl %v", ttl)
	}
	if ttl := mr.TTL("leaderboard:daily:2026-08-31"); ttl <= 0 {
		t.Fatalf("daily board must expire, ttl %v", ttl)
	}
}

func TestGetRanksAndHydratesMetadata(t *testing.T) {
	ctx := context.Background()
	lb, _ := newTestLeaderboard(t)

	for _, e := range []domain.LeaderboardEntry{entry("u1", 60), entry("u2", 90), entry("u3", 75)} {
		if err := lb.AddScore(ctx, e); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	entries, err := lb.Get(ctx, domain.LeaderboardDaily, 10, 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	wantOrder := []string{"u2", "u3", "u1"}
	for i, want := range wantOrder {
		if entries[i].UserID != want || entries[i].Rank != i+1 {
			t.Fatalf("position %d: got %+v, want user %s", i, entries[i], want)
		}
		if entries[i].Username != "name-"+want {
			t.Fatalf("metadata not hydrated for %s: %+v", want, entries[i])
		}
	}

	// Offset pagination continues the rank numbering.
	page, err := lb.Get(ctx, domain.LeaderboardDaily, 10, 1)
	if err != nil {
		t.Fatalf("get offset: %v", err)
	}
	if len(page) != 2 || page[0].UserID != "u3" || page[0].Rank != 2 {
		t.Fatalf("unexpected second page: %+v", page)
	}

	count, err := lb.ParticipantCount(ctx, domain.LeaderboardDaily)
	if err != nil || count != 3 {
		t.Fatalf("expected 3 participants, got %d (%v)", count, err)
	}
}

func TestUserRankAbsentUserReturnsNil(t *testing.T) {
	ctx := context.Background()
	lb, _ := newTestLeaderboard(t)

	rank, err := lb.UserRank(ctx, domain.LeaderboardDaily, "ghost")
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if rank != nil {
		t.Fatalf("expected nil for absent user, got %+v", rank)
	}
}

func legacyBlob(t *testing.T, userID string, score int) string {
	t.Helper()
	blob, err := json.Marshal(map[string]any{
		"userId":       userID,
		"username":     "legacy-" + userID,
		"score":        score,
		"correctCount": 4,
		"timeBonus":    5,
		"completedAt":  boardClock.UnixMilli(),
		"badge":        "good_samaritan",
	})
	if err != nil {
		t.Fatalf("marshal blob: %v", err)
	}
	return string(blob)
}

func TestGetMigratesLegacyBlobMembers(t *testing.T) {
	ctx := context.Background()
	lb, mr := newTestLeaderboard(t)

	blob := legacyBlob(t, "u-old", 70)
	mr.ZAdd("leaderboard:daily:2026-08-31", 70, blob)

	entries, err := lb.Get(ctx, domain.LeaderboardDaily, 10, 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	got := entries[0]
	if got.UserID != "u-old" || got.Username != "legacy-u-old" || got.Score != 70 || got.Badge != domain.BadgeGoodSamaritan {
		t.Fatalf("legacy entry not decoded: %+v", got)
	}

	// The blob member is rewritten to the bare user id in place.
	members, err := mr.ZMembers("leaderboard:daily:2026-08-31")
	if err != nil {
		t.Fatalf("zmembers: %v", err)
	}
	if len(members) != 1 || members[0] != "u-old" {
		t.Fatalf("expected migrated member, got %v", members)
	}
	if !mr.Exists("user_data:u-old") {
		t.Fatalf("expected metadata hash to be backfilled")
	}
}

func TestConsolidateCollapsesDuplicatesToBestScore(t *testing.T) {
	ctx := context.Background()
	lb, mr := newTestLeaderboard(t)
	key := "leaderboard:daily:2026-08-31"

	// One user present three times in mixed formats plus one clean user.
	mr.ZAdd(key, 10, "u1")
	mr.ZAdd(key, 25, legacyBlob(t, "u1", 25))
	mr.ZAdd(key, 15, legacyBlob(t, "u1", 15))
	mr.ZAdd(key, 5, "u2")

	report, err := lb.Consolidate(ctx, domain.LeaderboardDaily)
	if err != nil {
		t.Fatalf("consolidate: %v", err)
	}
	if report.OriginalCount != 4 || report.ConsolidatedCount != 2 || report.DuplicatesRemoved != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}

	rank, err := lb.UserRank(ctx, domain.LeaderboardDaily, "u1")
	if err != nil || rank == nil {
		t.Fatalf("rank: %v (%+v)", err, rank)
	}
	if rank.Score != 25 || rank.Rank != 1 || rank.TotalUsers != 2 {
		t.Fatalf("expected best score 25 at rank 1 of 2, got %+v", rank)
	}

	// Second run is a no-op.
	again, err := lb.Consolidate(ctx, domain.LeaderboardDaily)
	if err != nil {
		t.Fatalf("second consolidate: %v", err)
	}
	if again.DuplicatesRemoved != 0 || again.OriginalCount != 2 {
		t.Fatalf("consolidation is not idempotent: %+v", again)
	}
}
