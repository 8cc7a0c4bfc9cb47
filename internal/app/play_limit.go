package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"spotai-game-service/internal/domain"
)

// Daily attempt caps. Non-production environments are effectively unbounded
// so local play-testing never hits the gate.
const (
	ProductionMaxAttempts = 2
	UnlimitedMaxAttempts  = 1_000_000
)

// PlayLimitStore persists per-user per-day attempt records.
type PlayLimitStore interface {
	// GetLimit returns nil with no error when no record exists yet.
	GetLimit(ctx context.Context, userID, date string) (*domain.UserPlayLimit, error)
	SaveLimit(ctx context.Context, limit *domain.UserPlayLimit) error
}

// PlayLimitTracker gates session creation on the daily attempt cap and keeps
// the per-day best completed session.
type PlayLimitTracker struct {
	store       PlayLimitStore
	maxAttempts int
	production  bool
	now         func() time.Time
}

func NewPlayLimitTracker(store PlayLimitStore, maxAttempts int, production bool) *PlayLimitTracker {
	if maxAttempts <= 0 {
		maxAttempts = UnlimitedMaxAttempts
		if production {
			maxAttempts = ProductionMaxAttempts
		}
	}
	return &PlayLimitTracker{store: store, maxAttempts: maxAttempts, production: production, now: time.Now}
}

// NewPlayLimitTrackerWithClock is test-only for deterministic dates.
func NewPlayLimitTrackerWithClock(store PlayLimitStore, maxAttempts int, production bool, now func() time.Time) *PlayLimitTracker {
	t := NewPlayLimitTracker(store, maxAttempts, production)
	t.now = now
	return t
}

// MaxAttempts exposes the configured cap.
func (t *PlayLimitTracker) MaxAttempts() int {
	return t.maxAttempts
}

// DateKey formats a time as the UTC calendar date used for limit records.
func DateKey(at time.Time) string {
	return at.UTC().Format("2006-01-02")
}

// WeekKey formats a time as the ISO week used for the weekly leaderboard.
func WeekKey(at time.Time) string {
	year, week := at.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// CanPlay reports whether the user may start a new session today. A store
// failure fails open outside production and closed in production.
func (t *PlayLimitTracker) CanPlay(ctx context.Context, userID string, date string) domain.PlayStatus {
	if userID == "" {
		return domain.PlayStatus{CanPlay: false, MaxAttempts: t.maxAttempts, Reason: domain.ErrInvalidUserID.Message}
	}
	if date == "" {
		date = DateKey(t.now())
	}

	limit, err := t.store.GetLimit(ctx, userID, date)
	if err != nil {
		if t.production {
			logrus.Errorf("play limit: store failure for %s, denying play: %v", userID, err)
			return domain.PlayStatus{CanPlay: false, MaxAttempts: t.maxAttempts, Reason: "play limit check unavailable"}
		}
		logrus.Warnf("play limit: store failure for %s, allowing play: %v", userID, err)
		return domain.PlayStatus{CanPlay: true, RemainingAttempts: t.maxAttempts, MaxAttempts: t.maxAttempts}
	}

	if limit == nil {
		return domain.PlayStatus{CanPlay: true, RemainingAttempts: t.maxAttempts, MaxAttempts: t.maxAttempts}
	}

	remaining := limit.MaxAttempts - limit.Attempts
	if remaining <= 0 {
		return domain.PlayStatus{
			CanPlay:           false,
			RemainingAttempts: 0,
			MaxAttempts:       limit.MaxAttempts,
			Reason:            domain.ErrLimitExceeded.Message,
		}
	}
	return domain.PlayStatus{CanPlay: true, RemainingAttempts: remaining, MaxAttempts: limit.MaxAttempts}
}

// IncrementAttempts consumes one attempt, lazily creating the day's record.
// The cap is re-checked here server-side; this is the authoritative gate.
func (t *PlayLimitTracker) IncrementAttempts(ctx context.Context, userID string, date string) (*domain.UserPlayLimit, error) {
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	if date == "" {
		date = DateKey(t.now())
	}

	limit, err := t.store.GetLimit(ctx, userID, date)
	if err != nil {
		return nil, domain.WrapStoreError(err)
	}
	if limit == nil {
		limit = &domain.UserPlayLimit{
			UserID:      userID,
			Date:        date,
			MaxAttempts: t.maxAttempts,
		}
	}
	if limit.Attempts >= limit.MaxAttempts {
		return nil, domain.ErrLimitExceeded
	}

	limit.Attempts++
	if err := t.store.SaveLimit(ctx, limit); err != nil {
		return nil, domain.WrapStoreError(err)
	}
	return limit, nil
}

// UpdateBestScore replaces the stored best attempt only when the completed
// session's total strictly exceeds it. Equal scores keep the earlier attempt.
func (t *PlayLimitTracker) UpdateBestScore(ctx context.Context, userID string, session *domain.GameSession) error {
	if userID == "" {
		return domain.ErrInvalidUserID
	}
	if session == nil || !session.Completed {
		return nil
	}
	date := DateKey(t.now())

	limit, err := t.store.GetLimit(ctx, userID, date)
	if err != nil {
		return domain.WrapStoreError(err)
	}
	if limit == nil {
		limit = &domain.UserPlayLimit{UserID: userID, Date: date, MaxAttempts: t.maxAttempts}
	}
	if session.TotalScore <= limit.BestScore && limit.BestAttempt != nil {
		return nil
	}
	if session.TotalScore > limit.BestScore || limit.BestAttempt == nil {
		limit.BestScore = session.TotalScore
		limit.BestAttempt = session
	}
	if err := t.store.SaveLimit(ctx, limit); err != nil {
		return domain.WrapStoreError(err)
	}
	return nil
}

// Stats returns the user's record for today, falling back to safe defaults
// when the store is unreachable so the subsystem never blocks gameplay on its
// own.
func (t *PlayLimitTracker) Stats(ctx context.Context, userID string) *domain.UserPlayLimit {
	date := DateKey(t.now())
	limit, err := t.store.GetLimit(ctx, userID, date)
	if err != nil {
		logrus.Warnf("play limit: stats lookup failed for %s, returning defaults: %v", userID, err)
		return &domain.UserPlayLimit{UserID: userID, Date: date, MaxAttempts: UnlimitedMaxAttempts}
	}
	if limit == nil {
		return &domain.UserPlayLimit{UserID: userID, Date: date, MaxAttempts: t.maxAttempts}
	}
	return limit
}
