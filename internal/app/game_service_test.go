package app_test

import (
	"context"
	"testing"
	"time"

	"spotai-game-service/internal/app"
	"spotai-game-service/internal/domain"
	"spotai-game-service/internal/infra/memory"
)

type testEnv struct {
	service  *app.GameService
	sessions *memory.SessionStore
	timers   *memory.RoundTimerStore
	board    *memory.Leaderboard
	daily    *memory.DailyStore
	hub      *app.Hub
	now      time.Time
}

func newTestEnv(t *testing.T, maxAttempts int) *testEnv {
	t.Helper()
	env := &testEnv{now: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return env.now }

	env.sessions = memory.NewSessionStore()
	env.timers = memory.NewRoundTimerStoreWithClock(clock)
	env.board = memory.NewLeaderboard()
	env.daily = memory.NewDailyStore()
	env.hub = app.NewHub()

	identity := memory.NewIdentityProvider()
	identity.SetUsername("u1", "Alice")

	collection := map[string][]domain.ImagePair{}
	for _, category := range []string{"landscapes", "portraits", "animals"} {
		for i := 0; i < 3; i++ {
			id := category + "-" + string(rune('a'+i))
			collection[category] = append(collection[category], domain.ImagePair{
				ID:       id,
				Category: category,
				AIImage:  domain.ImageInfo{URL: "/" + id + "/ai.webp", Category: category, IsAI: true},
				Human:    domain.ImageInfo{URL: "/" + id + "/real.webp", Category: category},
			})
		}
	}
	images := memory.NewImageRepository(
		memory.NewStaticCollectionLoader(domain.ImageCollection{Pairs: collection}), time.Minute)

	env.service = app.NewGameService(app.Dependencies{
		Sessions:    env.sessions,
		Limits:      app.NewPlayLimitTrackerWithClock(memory.NewPlayLimitStore(), maxAttempts, true, clock),
		Timing:      app.NewTimingGuardWithClock(env.timers, clock),
		Images:      images,
		Daily:       env.daily,
		Leaderboard: env.board,
		Identity:    identity,
		Hub:         env.hub,
		Clock:       clock,
	})
	return env
}

// correctAnswerFor reads the stored session to find the round's human image.
func (env *testEnv) correctAnswerFor(t *testing.T, userID, sessionID string, round int) domain.Answer {
	t.Helper()
	session, err := env.sessions.GetSession(context.Background(), userID, sessionID)
	if err != nil || session == nil {
		t.Fatalf("load session: %v", err)
	}
	return session.Round(round).CorrectAnswer
}

func TestFullGameFiveCorrectEarnsDetectiveBadge(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 2)

	initRes, err := env.service.InitializeGame(ctx, "u1")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !initRes.Proceed {
		t.Fatalf("expected fresh user to proceed, got %+v", initRes)
	}

	start, err := env.service.StartGame(ctx, "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if start.AttemptNumber != 1 || start.CurrentRound.RoundNumber != 1 {
		t.Fatalf("unexpected start result: %+v", start)
	}
	if start.CurrentRound.ImageA.URL == "" || start.CurrentRound.ImageB.URL == "" {
		t.Fatalf("round view is missing images: %+v", start.CurrentRound)
	}

	var final *domain.FinalResults
	for round := 1; round <= domain.RoundsPerSession; round++ {
		answer := env.correctAnswerFor(t, "u1", start.SessionID, round)
		if round == 2 {
			answer = answer.Opposite() // deliberate miss
		}
		env.now = env.now.Add(2 * time.Second)

		result, err := env.service.SubmitAnswer(ctx, "u1", start.SessionID, round, answer, 8_000)
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		wantCorrect := round != 2
		if result.IsCorrect != wantCorrect {
			t.Fatalf("round %d: correctness %v, want %v", round, result.IsCorrect, wantCorrect)
		}
		wantScore := 0
		if wantCorrect {
			wantScore = 15 // 8s remaining lands in the top bonus tier
		}
		if result.RoundScore != wantScore {
			t.Fatalf("round %d: score %d, want %d", round, result.RoundScore, wantScore)
		}
		if round < domain.RoundsPerSession {
			if result.GameComplete || result.NextRound == nil || result.NextRound.RoundNumber != round+1 {
				t.Fatalf("round %d: unexpected continuation %+v", round, result)
			}
		} else {
			if !result.GameComplete || result.FinalResults == nil {
				t.Fatalf("expected completion on round 6, got %+v", result)
			}
			final = result.FinalResults
		}
	}

	if final.TotalScore != 75 || final.CorrectCount != 5 || final.TimeBonus != 25 {
		t.Fatalf("unexpected totals: %+v", final)
	}
	if final.Badge != domain.BadgeAIDetective {
		t.Fatalf("expected ai_detective badge, got %s", final.Badge)
	}
	if final.BadgeInfo.Name != "AI Detective" {
		t.Fatalf("badge info not hydrated: %+v", final.BadgeInfo)
	}

	// Completion side effects: daily record, leaderboard entry with the
	// resolved username.
	completion, err := env.daily.GetCompletion(ctx, "u1", app.DateKey(env.now))
	if err != nil || completion == nil {
		t.Fatalf("expected completion record, got %v (%v)", completion, err)
	}
	entries, err := env.board.Get(ctx, domain.LeaderboardDaily, 10, 0)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one leaderboard entry, got %v (%v)", entries, err)
	}
	if entries[0].UserID != "u1" || entries[0].Username != "Alice" || entries[0].Score != 75 {
		t.Fatalf("unexpected leaderboard entry: %+v", entries[0])
	}
}

func TestSubmitAnswerRejectsReplaysAndFinishedSessions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 2)

	start, err := env.service.StartGame(ctx, "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	answer := env.correctAnswerFor(t, "u1", start.SessionID, 1)
	if _, err := env.service.SubmitAnswer(ctx, "u1", start.SessionID, 1, answer, 8_000); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := env.service.SubmitAnswer(ctx, "u1", start.SessionID, 1, answer, 8_000); err != domain.ErrRoundAlreadyAnswered {
		t.Fatalf("expected replay rejection, got %v", err)
	}

	for round := 2; round <= domain.RoundsPerSession; round++ {
		answer := env.correctAnswerFor(t, "u1", start.SessionID, round)
		if _, err := env.service.SubmitAnswer(ctx, "u1", start.SessionID, round, answer, 8_000); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
	}
	if _, err := env.service.SubmitAnswer(ctx, "u1", start.SessionID, 6, answer, 8_000); err != domain.ErrAlreadyCompleted {
		t.Fatalf("expected completed rejection, got %v", err)
	}
}

func TestSubmitAnswerValidatesInput(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 2)

	if _, err := env.service.SubmitAnswer(ctx, "", "s", 1, domain.AnswerA, 0); err != domain.ErrInvalidUserID {
		t.Fatalf("expected user id rejection, got %v", err)
	}
	if _, err := env.service.SubmitAnswer(ctx, "u1", "", 1, domain.AnswerA, 0); err != domain.ErrInvalidSessionID {
		t.Fatalf("expected session id rejection, got %v", err)
	}
	if _, err := env.service.SubmitAnswer(ctx, "u1", "s", 7, domain.AnswerA, 0); domain.CodeOf(err) != domain.CodeInvalidData {
		t.Fatalf("expected round number rejection, got %v", err)
	}
	if _, err := env.service.SubmitAnswer(ctx, "u1", "s", 1, "C", 0); domain.CodeOf(err) != domain.CodeInvalidData {
		t.Fatalf("expected answer rejection, got %v", err)
	}
	if _, err := env.service.SubmitAnswer(ctx, "u1", "s", 1, domain.AnswerA, -1); domain.CodeOf(err) != domain.CodeInvalidData {
		t.Fatalf("expected negative time rejection, got %v", err)
	}
	if _, err := env.service.SubmitAnswer(ctx, "u1", "missing", 1, domain.AnswerA, 0); err != domain.ErrSessionNotFound {
		t.Fatalf("expected not-found rejection, got %v", err)
	}
}

func TestEducationalBreakSkipsRoundFourTimer(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 2)

	start, err := env.service.StartGame(ctx, "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	for round := 1; round <= 3; round++ {
		answer := env.correctAnswerFor(t, "u1", start.SessionID, round)
		if _, err := env.service.SubmitAnswer(ctx, "u1", start.SessionID, round, answer, 8_000); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
	}

	// The interstitial pauses the game, so no round-4 start exists yet.
	if _, found, _ := env.timers.GetStart(ctx, start.SessionID, 4); found {
		t.Fatalf("round 4 start must not be recorded before the interstitial ends")
	}
	session, _ := env.sessions.GetSession(ctx, "u1", start.SessionID)
	if !session.ShowedEducationalContent {
		t.Fatalf("expected the educational flag to be set after round 3")
	}

	// The player returns minutes later; leniency accepts the claimed time.
	env.now = env.now.Add(5 * time.Minute)
	answer := env.correctAnswerFor(t, "u1", start.SessionID, 4)
	result, err := env.service.SubmitAnswer(ctx, "u1", start.SessionID, 4, answer, 9_000)
	if err != nil {
		t.Fatalf("round 4: %v", err)
	}
	if result.RoundScore != 15 {
		t.Fatalf("expected lenient scoring on round 4, got %d", result.RoundScore)
	}
}

func TestDailyLimitBlocksThirdStart(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 2)

	finish := func() {
		start, err := env.service.StartGame(ctx, "u1")
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		for round := 1; round <= domain.RoundsPerSession; round++ {
			answer := env.correctAnswerFor(t, "u1", start.SessionID, round)
			if _, err := env.service.SubmitAnswer(ctx, "u1", start.SessionID, round, answer, 8_000); err != nil {
				t.Fatalf("round %d: %v", round, err)
			}
		}
	}
	finish()
	finish()

	if _, err := env.service.StartGame(ctx, "u1"); err != domain.ErrLimitExceeded {
		t.Fatalf("expected third start to be blocked, got %v", err)
	}

	initRes, err := env.service.InitializeGame(ctx, "u1")
	if err != nil {
		t.Fatalf("init after exhaustion: %v", err)
	}
	if initRes.Proceed {
		t.Fatalf("expected init to stop an exhausted user")
	}
	if initRes.BestSession == nil || initRes.BestSession.TotalScore != 90 {
		t.Fatalf("expected the best attempt (6 correct, 90 points), got %+v", initRes.BestSession)
	}
}

func TestTimeoutRejectsLateSubmission(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 2)

	start, err := env.service.StartGame(ctx, "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	env.now = env.now.Add(16 * time.Second)
	answer := env.correctAnswerFor(t, "u1", start.SessionID, 1)
	if _, err := env.service.SubmitAnswer(ctx, "u1", start.SessionID, 1, answer, 5_000); err != domain.ErrRoundTimeout {
		t.Fatalf("expected timeout rejection, got %v", err)
	}
}

func TestCompletionBroadcastsLeaderboards(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 2)

	updates, cancel := env.hub.Subscribe(domain.LeaderboardDaily)
	defer cancel()

	start, err := env.service.StartGame(ctx, "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for round := 1; round <= domain.RoundsPerSession; round++ {
		answer := env.correctAnswerFor(t, "u1", start.SessionID, round)
		if _, err := env.service.SubmitAnswer(ctx, "u1", start.SessionID, round, answer, 8_000); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
	}

	select {
	case update := <-updates:
		if update.Type != domain.LeaderboardDaily || len(update.Entries) != 1 {
			t.Fatalf("unexpected broadcast: %+v", update)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no leaderboard broadcast after completion")
	}
}

func TestDailyGameSharedAcrossUsers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 2)

	if _, err := env.service.InitializeGame(ctx, "u1"); err != nil {
		t.Fatalf("init u1: %v", err)
	}
	if _, err := env.service.InitializeGame(ctx, "u2"); err != nil {
		t.Fatalf("init u2: %v", err)
	}

	game, err := env.daily.GetDailyGame(ctx, app.DateKey(env.now))
	if err != nil || game == nil {
		t.Fatalf("expected a daily game, got %v (%v)", game, err)
	}
	if len(game.Categories) != domain.RoundsPerSession {
		t.Fatalf("expected %d categories, got %d", domain.RoundsPerSession, len(game.Categories))
	}
}
