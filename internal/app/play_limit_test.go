package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"spotai-game-service/internal/domain"
)

type fakeLimitStore struct {
	limits map[string]*domain.UserPlayLimit
	fail   bool
}

func newFakeLimitStore() *fakeLimitStore {
	return &fakeLimitStore{limits: make(map[string]*domain.UserPlayLimit)}
}

func (s *fakeLimitStore) GetLimit(_ context.Context, userID, date string) (*domain.UserPlayLimit, error) {
	if s.fail {
		return nil, errors.New("store down")
	}
	limit, ok := s.limits[userID+":"+date]
	if !ok {
		return nil, nil
	}
	copied := *limit
	return &copied, nil
}

func (s *fakeLimitStore) SaveLimit(_ context.Context, limit *domain.UserPlayLimit) error {
	if s.fail {
		return errors.New("store down")
	}
	copied := *limit
	s.limits[limit.UserID+":"+limit.Date] = &copied
	return nil
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

var testDay = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

func TestIncrementAttemptsEnforcesDailyCap(t *testing.T) {
	ctx := context.Background()
	store := newFakeLimitStore()
	tracker := NewPlayLimitTrackerWithClock(store, ProductionMaxAttempts, true, fixedClock(testDay))
	date := DateKey(testDay)

	first, err := tracker.IncrementAttempts(ctx, "u1", date)
	if err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	if first.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", first.Attempts)
	}

	second, err := tracker.IncrementAttempts(ctx, "u1", date)
	if err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if second.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", second.Attempts)
	}

	if _, err := tracker.IncrementAttempts(ctx, "u1", date); err != domain.ErrLimitExceeded {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}

	status := tracker.CanPlay(ctx, "u1", date)
	if status.CanPlay || status.RemainingAttempts != 0 {
		t.Fatalf("expected exhausted status, got %+v", status)
	}
}

func TestCanPlayFreshUserHasFullAllowance(t *testing.T) {
	ctx := context.Background()
	tracker := NewPlayLimitTrackerWithClock(newFakeLimitStore(), ProductionMaxAttempts, true, fixedClock(testDay))

	status := tracker.CanPlay(ctx, "u1", DateKey(testDay))
	if !status.CanPlay || status.RemainingAttempts != ProductionMaxAttempts {
		t.Fatalf("expected full allowance, got %+v", status)
	}
}

func TestCanPlayFailureModesByEnvironment(t *testing.T) {
	ctx := context.Background()
	store := newFakeLimitStore()
	store.fail = true
	date := DateKey(testDay)

	prod := NewPlayLimitTrackerWithClock(store, ProductionMaxAttempts, true, fixedClock(testDay))
	if status := prod.CanPlay(ctx, "u1", date); status.CanPlay {
		t.Fatalf("production must fail closed, got %+v", status)
	}

	dev := NewPlayLimitTrackerWithClock(store, 0, false, fixedClock(testDay))
	if status := dev.CanPlay(ctx, "u1", date); !status.CanPlay {
		t.Fatalf("non-production must fail open, got %+v", status)
	}
}

func TestNonProductionCapIsEffectivelyUnlimited(t *testing.T) {
	tracker := NewPlayLimitTracker(newFakeLimitStore(), 0, false)
	if tracker.MaxAttempts() != UnlimitedMaxAttempts {
		t.Fatalf("expected %d, got %d", UnlimitedMaxAttempts, tracker.MaxAttempts())
	}
}

func completedSession(userID string, score int) *domain.GameSession {
	return &domain.GameSession{
		UserID:     userID,
		SessionID:  userID + "-s",
		TotalScore: score,
		Completed:  true,
	}
}

func TestUpdateBestScoreKeepsStrictlyHigher(t *testing.T) {
	ctx := context.Background()
	store := newFakeLimitStore()
	tracker := NewPlayLimitTrackerWithClock(store, ProductionMaxAttempts, true, fixedClock(testDay))

	if err := tracker.UpdateBestScore(ctx, "u1", completedSession("u1", 80)); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if err := tracker.UpdateBestScore(ctx, "u1", completedSession("u1", 60)); err != nil {
		t.Fatalf("lower update: %v", err)
	}
	if got := tracker.Stats(ctx, "u1"); got.BestScore != 80 {
		t.Fatalf("lower score overwrote best: got %d", got.BestScore)
	}

	if err := tracker.UpdateBestScore(ctx, "u1", completedSession("u1", 95)); err != nil {
		t.Fatalf("higher update: %v", err)
	}
	if got := tracker.Stats(ctx, "u1"); got.BestScore != 95 {
		t.Fatalf("expected best 95, got %d", got.BestScore)
	}
}

func TestUpdateBestScoreEqualKeepsEarlierAttempt(t *testing.T) {
	ctx := context.Background()
	store := newFakeLimitStore()
	tracker := NewPlayLimitTrackerWithClock(store, ProductionMaxAttempts, true, fixedClock(testDay))

	first := completedSession("u1", 80)
	first.SessionID = "first"
	later := completedSession("u1", 80)
	later.SessionID = "later"

	if err := tracker.UpdateBestScore(ctx, "u1", first); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if err := tracker.UpdateBestScore(ctx, "u1", later); err != nil {
		t.Fatalf("equal update: %v", err)
	}
	got := tracker.Stats(ctx, "u1")
	if got.BestAttempt == nil || got.BestAttempt.SessionID != "first" {
		t.Fatalf("equal score must keep the earlier attempt, got %+v", got.BestAttempt)
	}
}

func TestUpdateBestScoreIgnoresIncompleteSessions(t *testing.T) {
	ctx := context.Background()
	store := newFakeLimitStore()
	tracker := NewPlayLimitTrackerWithClock(store, ProductionMaxAttempts, true, fixedClock(testDay))

	session := completedSession("u1", 80)
	session.Completed = false
	if err := tracker.UpdateBestScore(ctx, "u1", session); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := tracker.Stats(ctx, "u1"); got.BestAttempt != nil {
		t.Fatalf("incomplete session must not become the best attempt")
	}
}

func TestWeekKeyUsesISOWeeks(t *testing.T) {
	// 2026-01-01 falls in ISO week 1 of 2026; 2027-01-01 falls in week 53 of 2026.
	if got := WeekKey(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)); got != "2026-W01" {
		t.Fatalf("expected 2026-W01, got %s", got)
	}
	if got := WeekKey(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)); got != "2026-W53" {
		t.Fatalf("expected 2026-W53, got %s", got)
	}
}
