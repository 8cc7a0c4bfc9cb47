package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"spotai-game-service/internal/domain"
)

// SessionMaxAge is how long a started session stays answerable.
const SessionMaxAge = 24 * time.Hour

// SessionStore abstracts how game sessions are persisted (in-memory, Redis).
type SessionStore interface {
	SaveSession(ctx context.Context, session *domain.GameSession) error
	// GetSession returns nil with no error when the session does not exist.
	GetSession(ctx context.Context, userID, sessionID string) (*domain.GameSession, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error
}

// DailyStore persists the shared daily category pool and per-user completion
// records.
type DailyStore interface {
	GetDailyGame(ctx context.Context, date string) (*domain.DailyGame, error)
	SaveDailyGame(ctx context.Context, game *domain.DailyGame) error
	GetCompletion(ctx context.Context, userID, date string) (*domain.DailyCompletion, error)
	SaveCompletion(ctx context.Context, completion *domain.DailyCompletion) error
}

// ImageRepository provides the categorized AI/human image-pair collection.
type ImageRepository interface {
	GetCollection(ctx context.Context, date string) (domain.ImageCollection, error)
}

// Leaderboard maintains the three ranked collections.
type Leaderboard interface {
	AddScore(ctx context.Context, entry domain.LeaderboardEntry) error
	Get(ctx context.Context, typ domain.LeaderboardType, limit, offset int) ([]domain.LeaderboardEntry, error)
	UserRank(ctx context.Context, typ domain.LeaderboardType, userID string) (*domain.UserRank, error)
	ParticipantCount(ctx context.Context, typ domain.LeaderboardType) (int, error)
	Consolidate(ctx context.Context, typ domain.LeaderboardType) (domain.ConsolidationReport, error)
}

// IdentityProvider resolves a stable user id to a display username.
type IdentityProvider interface {
	Username(ctx context.Context, userID string) (string, error)
}

// Dependencies wires the orchestrator's collaborators.
type Dependencies struct {
	Sessions    SessionStore
	Limits      *PlayLimitTracker
	Timing      *TimingGuard
	Images      ImageRepository
	Daily       DailyStore
	Leaderboard Leaderboard
	Identity    IdentityProvider
	Hub         *Hub

	// Clock and Seed are optional; tests inject them for determinism.
	Clock func() time.Time
	Seed  SeedFunc
}

// GameService orchestrates the session lifecycle: creation, answer
// submission, completion side effects.
type GameService struct {
	sessions    SessionStore
	limits      *PlayLimitTracker
	timing      *TimingGuard
	images      ImageRepository
	daily       DailyStore
	leaderboard Leaderboard
	identity    IdentityProvider
	hub         *Hub
	now         func() time.Time
	seed        SeedFunc
}

func NewGameService(deps Dependencies) *GameService {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	seed := deps.Seed
	if seed == nil {
		seed = DefaultSeed
	}
	return &GameService{
		sessions:    deps.Sessions,
		limits:      deps.Limits,
		timing:      deps.Timing,
		images:      deps.Images,
		daily:       deps.Daily,
		leaderboard: deps.Leaderboard,
		identity:    deps.Identity,
		hub:         deps.Hub,
		now:         now,
		seed:        seed,
	}
}

// InitResult tells the client whether to proceed to StartGame or show a
// prior result.
type InitResult struct {
	Proceed     bool                    `json:"proceed"`
	Status      domain.PlayStatus       `json:"status"`
	BestSession *domain.GameSession     `json:"bestSession,omitempty"`
	Completion  *domain.DailyCompletion `json:"completion,omitempty"`
}

// StartResult carries the new session's id and first round.
type StartResult struct {
	SessionID     string            `json:"sessionId"`
	AttemptNumber int               `json:"attemptNumber"`
	CurrentRound  domain.RoundView  `json:"currentRound"`
	Status        domain.PlayStatus `json:"status"`
}

// SubmitResult is the outcome of grading one round.
type SubmitResult struct {
	IsCorrect       bool                 `json:"isCorrect"`
	CorrectAnswer   domain.Answer        `json:"correctAnswer"`
	AIImagePosition domain.Answer        `json:"aiImagePosition"`
	RoundScore      int                  `json:"roundScore"`
	TotalScore      int                  `json:"totalScore"`
	GameComplete    bool                 `json:"gameComplete"`
	NextRound       *domain.RoundView    `json:"nextRound,omitempty"`
	FinalResults    *domain.FinalResults `json:"finalResults,omitempty"`
}

// InitializeGame checks the play limit and prepares the daily pool. The check
// here is advisory; StartGame re-checks and is the authoritative gate. When
// attempts are exhausted the user's best prior completed session (or the
// daily completion summary) is returned instead.
func (s *GameService) InitializeGame(ctx context.Context, userID string) (*InitResult, error) {
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	date := DateKey(s.now())

	status := s.limits.CanPlay(ctx, userID, date)
	if !status.CanPlay {
		stats := s.limits.Stats(ctx, userID)
		if stats.BestAttempt != nil {
			return &InitResult{Proceed: false, Status: status, BestSession: stats.BestAttempt}, nil
		}
		completion, err := s.daily.GetCompletion(ctx, userID, date)
		if err != nil {
			return nil, domain.WrapStoreError(err)
		}
		if completion != nil {
			return &InitResult{Proceed: false, Status: status, Completion: completion}, nil
		}
		return nil, domain.ErrLimitExceeded
	}

	if _, err := s.ensureDailyGame(ctx, date); err != nil {
		return nil, err
	}
	return &InitResult{Proceed: true, Status: status}, nil
}

// StartGame consumes an attempt, builds a six-round session from the daily
// pool and returns the first round.
func (s *GameService) StartGame(ctx context.Context, userID string) (*StartResult, error) {
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	now := s.now()
	date := DateKey(now)

	limit, err := s.limits.IncrementAttempts(ctx, userID, date)
	if err != nil {
		return nil, err
	}

	dailyGame, err := s.ensureDailyGame(ctx, date)
	if err != nil {
		return nil, err
	}
	collection, err := s.images.GetCollection(ctx, date)
	if err != nil {
		return nil, domain.WrapStoreError(err)
	}

	sessionID := NewSessionID(userID, now)
	rng := newSeededRand(s.seed(userID, sessionID, now.UnixMilli()))
	rounds, err := generateRounds(collection, dailyGame.Categories, rng)
	if err != nil {
		return nil, err
	}

	session := &domain.GameSession{
		UserID:        userID,
		SessionID:     sessionID,
		StartTime:     now.UnixMilli(),
		Rounds:        rounds,
		AttemptNumber: limit.Attempts,
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, domain.WrapStoreError(err)
	}

	s.timing.RecordStart(ctx, sessionID, 1)

	return &StartResult{
		SessionID:     sessionID,
		AttemptNumber: limit.Attempts,
		CurrentRound:  rounds[0].View(),
		Status: domain.PlayStatus{
			CanPlay:           limit.Attempts < limit.MaxAttempts,
			RemainingAttempts: limit.MaxAttempts - limit.Attempts,
			MaxAttempts:       limit.MaxAttempts,
		},
	}, nil
}

// SubmitAnswer grades one round with the server-validated time, mutates the
// session, and on the sixth answer runs the completion side effects.
func (s *GameService) SubmitAnswer(ctx context.Context, userID, sessionID string, roundNumber int, answer domain.Answer, timeRemainingMs int64) (*SubmitResult, error) {
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	if sessionID == "" {
		return nil, domain.ErrInvalidSessionID
	}
	if roundNumber < 1 || roundNumber > domain.RoundsPerSession {
		return nil, domain.NewError(domain.CodeInvalidData, "round number must be between 1 and 6")
	}
	if !answer.Valid() {
		return nil, domain.NewError(domain.CodeInvalidData, "answer must be A or B")
	}
	if timeRemainingMs < 0 {
		return nil, domain.NewError(domain.CodeInvalidData, "time remaining must not be negative")
	}

	session, err := s.sessions.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, domain.WrapStoreError(err)
	}
	if session == nil || session.UserID != userID {
		return nil, domain.ErrSessionNotFound
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if s.now().UnixMilli()-session.StartTime > SessionMaxAge.Milliseconds() {
		return nil, domain.ErrSessionExpired
	}
	if session.Completed {
		return nil, domain.ErrAlreadyCompleted
	}

	round := session.Round(roundNumber)
	if round.Answered() {
		return nil, domain.ErrRoundAlreadyAnswered
	}

	authoritative, err := s.timing.ValidateTime(ctx, sessionID, roundNumber, timeRemainingMs)
	if err != nil {
		return nil, err
	}

	isCorrect := answer == round.CorrectAnswer
	score := Score(isCorrect, authoritative)

	round.UserAnswer = answer
	round.TimeRemaining = authoritative
	round.IsCorrect = isCorrect
	round.Score = score
	session.TotalScore += score
	if isCorrect {
		session.CorrectCount++
		session.TotalTimeBonus += score - baseScore
	}
	s.timing.ClearStart(ctx, sessionID, roundNumber)

	next := session.CurrentRound()
	complete := next == nil
	if complete {
		session.Badge = DetermineBadge(session.CorrectCount)
		session.Completed = true
	} else if roundNumber == 3 && next.RoundNumber == 4 && !session.ShowedEducationalContent {
		// The client inserts an educational interstitial before round 4, so
		// the round-4 start time is deliberately not recorded here; the
		// timing guard establishes it on submission instead.
		session.ShowedEducationalContent = true
	} else {
		s.timing.RecordStart(ctx, sessionID, next.RoundNumber)
	}

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, domain.WrapStoreError(err)
	}

	result := &SubmitResult{
		IsCorrect:       isCorrect,
		CorrectAnswer:   round.CorrectAnswer,
		AIImagePosition: round.AIImagePosition,
		RoundScore:      score,
		TotalScore:      session.TotalScore,
		GameComplete:    complete,
	}
	if complete {
		s.finalizeSession(ctx, session)
		info := session.Badge.Info()
		result.FinalResults = &domain.FinalResults{
			SessionID:    session.SessionID,
			TotalScore:   session.TotalScore,
			CorrectCount: session.CorrectCount,
			TimeBonus:    session.TotalTimeBonus,
			Badge:        session.Badge,
			BadgeInfo:    info,
		}
	} else {
		view := next.View()
		result.NextRound = &view
	}
	return result, nil
}

// ensureDailyGame lazily initializes the shared category line-up for a date.
func (s *GameService) ensureDailyGame(ctx context.Context, date string) (*domain.DailyGame, error) {
	game, err := s.daily.GetDailyGame(ctx, date)
	if err != nil {
		return nil, domain.WrapStoreError(err)
	}
	if game != nil {
		return game, nil
	}

	collection, err := s.images.GetCollection(ctx, date)
	if err != nil {
		return nil, domain.WrapStoreError(err)
	}
	categories := pickDailyCategories(collection, date)
	if len(categories) == 0 {
		return nil, domain.ErrNoImagesAvailable
	}
	game = &domain.DailyGame{Date: date, Categories: categories, CreatedAt: s.now().UnixMilli()}
	if err := s.daily.SaveDailyGame(ctx, game); err != nil {
		return nil, domain.WrapStoreError(err)
	}
	return game, nil
}

// finalizeSession runs the completion side effects. The answer itself has
// already been graded and persisted, so failures here are logged rather than
// surfaced to the player.
func (s *GameService) finalizeSession(ctx context.Context, session *domain.GameSession) {
	date := DateKey(s.now())
	completedAt := s.now().UnixMilli()

	completion := &domain.DailyCompletion{
		UserID:       session.UserID,
		Date:         date,
		SessionID:    session.SessionID,
		TotalScore:   session.TotalScore,
		CorrectCount: session.CorrectCount,
		TimeBonus:    session.TotalTimeBonus,
		Badge:        session.Badge,
		CompletedAt:  completedAt,
	}
	if err := s.daily.SaveCompletion(ctx, completion); err != nil {
		logrus.Errorf("failed to record daily completion for %s: %v", session.UserID, err)
	}

	if err := s.limits.UpdateBestScore(ctx, session.UserID, session); err != nil {
		logrus.Errorf("failed to update best score for %s: %v", session.UserID, err)
	}

	username, err := s.identity.Username(ctx, session.UserID)
	if err != nil || username == "" {
		username = session.UserID
	}
	entry := domain.LeaderboardEntry{
		UserID:       session.UserID,
		Username:     username,
		Score:        session.TotalScore,
		CorrectCount: session.CorrectCount,
		TimeBonus:    session.TotalTimeBonus,
		CompletedAt:  completedAt,
		Badge:        session.Badge,
	}
	if err := s.leaderboard.AddScore(ctx, entry); err != nil {
		logrus.Errorf("failed to push %s onto leaderboards: %v", session.UserID, err)
		return
	}

	if s.hub != nil {
		go s.broadcastLeaderboards(context.WithoutCancel(ctx))
	}
}

// broadcastLeaderboards publishes fresh top-ten snapshots to realtime
// subscribers. Best effort only.
func (s *GameService) broadcastLeaderboards(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("leaderboard broadcast panicked: %v", r)
		}
	}()
	for _, typ := range domain.LeaderboardTypes {
		entries, err := s.leaderboard.Get(ctx, typ, 10, 0)
		if err != nil {
			logrus.Warnf("broadcast: failed to load %s leaderboard: %v", typ, err)
			continue
		}
		s.hub.Publish(LeaderboardUpdate{Type: typ, Entries: entries})
	}
}
