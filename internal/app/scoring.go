package app

import "spotai-game-service/internal/domain"

// Timing constants for a single round, in milliseconds.
const (
	RoundTimeMs     int64 = 10_000 // countdown shown to the player
	NetworkBufferMs int64 = 5_000  // grace for round trips and clock skew
	MaxRoundMs      int64 = RoundTimeMs + NetworkBufferMs
	TimeToleranceMs int64 = 3_000 // allowed drift between claimed and server time
)

const baseScore = 10

// Score maps a round outcome to points. Incorrect answers always score zero;
// correct answers earn the base plus a bonus tier keyed on whole seconds
// remaining. Negative input clamps to the zero-bonus tier.
func Score(isCorrect bool, timeRemainingMs int64) int {
	if !isCorrect {
		return 0
	}
	seconds := timeRemainingMs / 1000
	if timeRemainingMs < 0 {
		seconds = 0
	}
	switch {
	case seconds >= 7:
		return baseScore + 5
	case seconds >= 4:
		return baseScore + 3
	case seconds >= 1:
		return baseScore + 1
	default:
		return baseScore
	}
}

// DetermineBadge maps a correct-answer count to its badge tier. The tiers
// partition [0,6] with no gaps.
func DetermineBadge(correctCount int) domain.BadgeTier {
	switch {
	case correctCount >= 6:
		return domain.BadgeAIWhisperer
	case correctCount == 5:
		return domain.BadgeAIDetective
	case correctCount == 4:
		return domain.BadgeGoodSamaritan
	case correctCount == 3:
		return domain.BadgeJustHuman
	default:
		return domain.BadgeHumanInTraining
	}
}
