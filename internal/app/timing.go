package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"spotai-game-service/internal/domain"
)

// RoundStartTTL bounds how long a recorded round start stays valid.
const RoundStartTTL = 5 * time.Minute

// RoundTimerStore persists per-(session, round) start timestamps.
type RoundTimerStore interface {
	RecordStart(ctx context.Context, sessionID string, round int, at time.Time) error
	GetStart(ctx context.Context, sessionID string, round int) (time.Time, bool, error)
	ClearStart(ctx context.Context, sessionID string, round int) error
}

// TimingGuard validates client-reported time-remaining against server-side
// round start timestamps so the score can't be inflated.
type TimingGuard struct {
	store RoundTimerStore
	now   func() time.Time
}

func NewTimingGuard(store RoundTimerStore) *TimingGuard {
	return &TimingGuard{store: store, now: time.Now}
}

// NewTimingGuardWithClock is test-only for deterministic timestamps.
func NewTimingGuardWithClock(store RoundTimerStore, now func() time.Time) *TimingGuard {
	return &TimingGuard{store: store, now: now}
}

// RecordStart marks the server-side start of a round. Best effort: a failed
// write falls back to the missing-start leniency path on submission.
func (g *TimingGuard) RecordStart(ctx context.Context, sessionID string, round int) {
	if err := g.store.RecordStart(ctx, sessionID, round, g.now()); err != nil {
		logrus.Warnf("round timer: failed to record start for %s round %d: %v", sessionID, round, err)
	}
}

// ValidateTime returns the authoritative time-remaining for a submission.
//
// With a recorded start: elapsed beyond the max round duration rejects the
// submission as a timeout; a claimed value outside the tolerance window is
// silently replaced by the server-computed remainder.
//
// Without a recorded start (round resumed after an interstitial screen), the
// claimed value is accepted after clamping to [0, RoundTimeMs]. This leniency
// is load-bearing for the educational-content flow and must stay.
//
// Any internal store error fails open with the clamped claimed value.
func (g *TimingGuard) ValidateTime(ctx context.Context, sessionID string, round int, claimedMs int64) (int64, error) {
	start, found, err := g.store.GetStart(ctx, sessionID, round)
	if err != nil {
		logrus.Warnf("round timer: lookup failed for %s round %d, accepting clamped client value: %v", sessionID, round, err)
		return clampTime(claimedMs), nil
	}

	if !found {
		if err := g.store.RecordStart(ctx, sessionID, round, g.now()); err != nil {
			logrus.Warnf("round timer: failed to establish fresh start for %s round %d: %v", sessionID, round, err)
		}
		return clampTime(claimedMs), nil
	}

	elapsed := g.now().Sub(start).Milliseconds()
	if elapsed > MaxRoundMs {
		return 0, domain.ErrRoundTimeout
	}

	expected := RoundTimeMs - elapsed
	if expected < 0 {
		expected = 0
	}

	diff := claimedMs - expected
	if diff < 0 {
		diff = -diff
	}
	if diff > TimeToleranceMs {
		logrus.Warnf("round timer: claimed %dms outside tolerance of expected %dms for %s round %d, substituting server value",
			claimedMs, expected, sessionID, round)
		return expected, nil
	}
	return clampTime(claimedMs), nil
}

// ClearStart drops the timestamp once a round is graded.
func (g *TimingGuard) ClearStart(ctx context.Context, sessionID string, round int) {
	if err := g.store.ClearStart(ctx, sessionID, round); err != nil {
		logrus.Warnf("round timer: failed to clear start for %s round %d: %v", sessionID, round, err)
	}
}

func clampTime(ms int64) int64 {
	if ms < 0 {
		return 0
	}
	if ms > RoundTimeMs {
		return RoundTimeMs
	}
	return ms
}
