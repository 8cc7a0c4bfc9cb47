package app

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"spotai-game-service/internal/domain"
)

// SeedFunc derives the deterministic seed for a session's round generation.
// Injectable so tests can pin the ordering.
type SeedFunc func(userID, sessionID string, timestamp int64) uint64

// DefaultSeed hashes userId, sessionId and the start timestamp with FNV-1a.
func DefaultSeed(userID, sessionID string, timestamp int64) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%d", userID, sessionID, timestamp)
	return h.Sum64()
}

// NewSessionID builds an opaque session id from the user, the start time and
// a random suffix.
func NewSessionID(userID string, now time.Time) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s_%d_%s", userID, now.UnixMilli(), suffix)
}

// seededRand is a small linear-congruential generator. Same seed, same
// sequence, which keeps round selection reproducible per attempt.
type seededRand struct {
	state uint64
}

func newSeededRand(seed uint64) *seededRand {
	if seed == 0 {
		seed = 0x9E3779B97F4A7C15
	}
	return &seededRand{state: seed}
}

func (r *seededRand) next() uint64 {
	r.state = r.state*6364136223846793005 + 1442695040888963407
	return r.state
}

// Intn returns a value in [0, n).
func (r *seededRand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int((r.next() >> 33) % uint64(n))
}

// pickDailyCategories selects the day's category line-up from the collection,
// seeded by the date so every player sees the same rotation.
func pickDailyCategories(collection domain.ImageCollection, date string) []string {
	categories := collection.Categories()
	sort.Strings(categories)
	if len(categories) == 0 {
		return nil
	}

	rng := newSeededRand(DefaultSeed("daily", date, 0))
	rng.shuffle(categories)

	picked := make([]string, 0, domain.RoundsPerSession)
	for i := 0; i < domain.RoundsPerSession; i++ {
		picked = append(picked, categories[i%len(categories)])
	}
	return picked
}

func (r *seededRand) shuffle(values []string) {
	for i := len(values) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		values[i], values[j] = values[j], values[i]
	}
}

// generateRounds builds six rounds from the collection, one pair per round,
// never reusing a pair within the session. The AI image's position is drawn
// from the session's seeded generator.
func generateRounds(collection domain.ImageCollection, categories []string, rng *seededRand) ([]domain.GameRound, error) {
	used := make(map[string]bool)
	rounds := make([]domain.GameRound, 0, domain.RoundsPerSession)

	for i := 0; i < domain.RoundsPerSession; i++ {
		category := categories[i%len(categories)]
		pair, ok := pickUnusedPair(collection, category, used, rng)
		if !ok {
			// Category exhausted; fall back to any category with spare pairs.
			pair, ok = pickAnyUnusedPair(collection, used, rng)
			if !ok {
				return nil, domain.ErrNoImagesAvailable
			}
		}
		used[pair.ID] = true

		aiPosition := domain.AnswerA
		if rng.Intn(2) == 1 {
			aiPosition = domain.AnswerB
		}

		round := domain.GameRound{
			RoundNumber:     i + 1,
			AIImagePosition: aiPosition,
			CorrectAnswer:   aiPosition.Opposite(),
		}
		if aiPosition == domain.AnswerA {
			round.ImageA = pair.AIImage
			round.ImageB = pair.Human
		} else {
			round.ImageA = pair.Human
			round.ImageB = pair.AIImage
		}
		rounds = append(rounds, round)
	}
	return rounds, nil
}

func pickUnusedPair(collection domain.ImageCollection, category string, used map[string]bool, rng *seededRand) (domain.ImagePair, bool) {
	pairs := collection.Pairs[category]
	candidates := make([]domain.ImagePair, 0, len(pairs))
	for _, p := range pairs {
		if !used[p.ID] {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return domain.ImagePair{}, false
	}
	return candidates[rng.Intn(len(candidates))], true
}

func pickAnyUnusedPair(collection domain.ImageCollection, used map[string]bool, rng *seededRand) (domain.ImagePair, bool) {
	categories := collection.Categories()
	sort.Strings(categories)
	for _, category := range categories {
		if pair, ok := pickUnusedPair(collection, category, used, rng); ok {
			return pair, true
		}
	}
	return domain.ImagePair{}, false
}
