package domain

// Answer identifies one of the two images in a round.
type Answer string

const (
	AnswerA Answer = "A"
	AnswerB Answer = "B"
)

// Valid reports whether the answer is one of the two allowed positions.
func (a Answer) Valid() bool {
	return a == AnswerA || a == AnswerB
}

// Opposite returns the other image position.
func (a Answer) Opposite() Answer {
	if a == AnswerA {
		return AnswerB
	}
	return AnswerA
}

// ImageInfo describes one image of a round's pair.
type ImageInfo struct {
	URL      string `json:"url"`
	Category string `json:"category"`
	IsAI     bool   `json:"isAI"`
	Source   string `json:"source,omitempty"`
}

// ImagePair couples one AI-generated and one human-made image from the same category.
type ImagePair struct {
	ID       string    `json:"id"`
	Category string    `json:"category"`
	AIImage  ImageInfo `json:"aiImage"`
	Human    ImageInfo `json:"humanImage"`
}

// ImageCollection is the categorized pool of pairs the round generator draws from.
type ImageCollection struct {
	Pairs map[string][]ImagePair `json:"pairs"` // keyed by category
}

// Categories returns the collection's category names. Order is map order;
// callers that need determinism must sort.
func (c ImageCollection) Categories() []string {
	out := make([]string, 0, len(c.Pairs))
	for cat := range c.Pairs {
		out = append(out, cat)
	}
	return out
}

// GameRound is one of the six image-pair comparisons in a session.
// CorrectAnswer identifies the human image; AIImagePosition is always the
// opposite letter.
type GameRound struct {
	RoundNumber     int       `json:"roundNumber"`
	ImageA          ImageInfo `json:"imageA"`
	ImageB          ImageInfo `json:"imageB"`
	CorrectAnswer   Answer    `json:"correctAnswer"`
	AIImagePosition Answer    `json:"aiImagePosition"`
	UserAnswer      Answer    `json:"userAnswer,omitempty"`
	TimeRemaining   int64     `json:"timeRemaining,omitempty"` // ms, set once on submission
	IsCorrect       bool      `json:"isCorrect"`
	Score           int       `json:"score"`
}

// Answered reports whether the round has received a submission.
func (r GameRound) Answered() bool {
	return r.UserAnswer != ""
}

// ImageView is the client-safe projection of an image (no AI flag).
type ImageView struct {
	URL      string `json:"url"`
	Category string `json:"category"`
}

// RoundView is the client-safe projection of an unanswered round.
type RoundView struct {
	RoundNumber int       `json:"roundNumber"`
	ImageA      ImageView `json:"imageA"`
	ImageB      ImageView `json:"imageB"`
}

// View strips everything a client could use to cheat.
func (r GameRound) View() RoundView {
	return RoundView{
		RoundNumber: r.RoundNumber,
		ImageA:      ImageView{URL: r.ImageA.URL, Category: r.ImageA.Category},
		ImageB:      ImageView{URL: r.ImageB.URL, Category: r.ImageB.Category},
	}
}

// GameState is the explicit session lifecycle state.
type GameState string

const (
	StateCreated    GameState = "created"
	StateInProgress GameState = "in_progress"
	StateCompleted  GameState = "completed"
)

// RoundsPerSession is fixed; a session with any other count is corrupt.
const RoundsPerSession = 6

// GameSession is one complete play-through attempt.
type GameSession struct {
	UserID                   string      `json:"userId"`
	SessionID                string      `json:"sessionId"`
	StartTime                int64       `json:"startTime"` // epoch ms
	Rounds                   []GameRound `json:"rounds"`
	TotalScore               int         `json:"totalScore"`
	CorrectCount             int         `json:"correctCount"`
	TotalTimeBonus           int         `json:"totalTimeBonus"`
	Badge                    BadgeTier   `json:"badge,omitempty"`
	Completed                bool        `json:"completed"`
	AttemptNumber            int         `json:"attemptNumber"`
	ShowedEducationalContent bool        `json:"showedEducationalContent"`
}

// State derives the lifecycle state from the session's rounds.
func (s *GameSession) State() GameState {
	if s.Completed {
		return StateCompleted
	}
	for _, r := range s.Rounds {
		if r.Answered() {
			return StateInProgress
		}
	}
	return StateCreated
}

// CurrentRound returns the first unanswered round, or nil when all six are
// answered.
func (s *GameSession) CurrentRound() *GameRound {
	for i := range s.Rounds {
		if !s.Rounds[i].Answered() {
			return &s.Rounds[i]
		}
	}
	return nil
}

// Round returns the round with the given number, or nil.
func (s *GameSession) Round(number int) *GameRound {
	if number < 1 || number > len(s.Rounds) {
		return nil
	}
	return &s.Rounds[number-1]
}

// Validate checks the session's structural invariants.
func (s *GameSession) Validate() error {
	if s.UserID == "" {
		return ErrInvalidUserID
	}
	if s.SessionID == "" {
		return ErrInvalidSessionID
	}
	if len(s.Rounds) != RoundsPerSession {
		return NewError(CodeInvalidGameState, "session does not have exactly six rounds")
	}
	for i, r := range s.Rounds {
		if r.RoundNumber != i+1 {
			return NewError(CodeInvalidGameState, "round numbers do not match positions")
		}
		if !r.CorrectAnswer.Valid() || !r.AIImagePosition.Valid() {
			return NewError(CodeInvalidGameState, "round has invalid answer positions")
		}
		if r.CorrectAnswer == r.AIImagePosition {
			return NewError(CodeInvalidGameState, "round marks the same image as both AI and human")
		}
	}
	if s.TotalScore < 0 || s.TotalTimeBonus < 0 {
		return NewError(CodeInvalidGameState, "session has negative score totals")
	}
	if s.CorrectCount < 0 || s.CorrectCount > RoundsPerSession {
		return NewError(CodeInvalidGameState, "correct count out of range")
	}
	if s.Badge != "" && !s.Badge.Valid() {
		return NewError(CodeInvalidGameState, "unknown badge tier")
	}
	return nil
}

// UserPlayLimit tracks a user's daily attempts and best result.
type UserPlayLimit struct {
	UserID      string       `json:"userId"`
	Date        string       `json:"date"` // UTC calendar date, YYYY-MM-DD
	Attempts    int          `json:"attempts"`
	MaxAttempts int          `json:"maxAttempts"`
	BestScore   int          `json:"bestScore"`
	BestAttempt *GameSession `json:"bestAttempt,omitempty"`
}

// PlayStatus answers "may this user start a session right now".
type PlayStatus struct {
	CanPlay           bool   `json:"canPlay"`
	RemainingAttempts int    `json:"remainingAttempts"`
	MaxAttempts       int    `json:"maxAttempts"`
	Reason            string `json:"reason,omitempty"`
}

// LeaderboardType selects one of the three ranked collections.
type LeaderboardType string

const (
	LeaderboardDaily   LeaderboardType = "daily"
	LeaderboardWeekly  LeaderboardType = "weekly"
	LeaderboardAllTime LeaderboardType = "alltime"
)

// LeaderboardTypes lists all collections in display order.
var LeaderboardTypes = []LeaderboardType{LeaderboardDaily, LeaderboardWeekly, LeaderboardAllTime}

// Valid reports whether the type names a known collection.
func (t LeaderboardType) Valid() bool {
	return t == LeaderboardDaily || t == LeaderboardWeekly || t == LeaderboardAllTime
}

// LeaderboardEntry is the derived per-user view of one ranked collection.
type LeaderboardEntry struct {
	Rank         int       `json:"rank"`
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	Score        int       `json:"score"`
	CorrectCount int       `json:"correctCount"`
	TimeBonus    int       `json:"timeBonus"`
	CompletedAt  int64     `json:"completedAt"`
	Badge        BadgeTier `json:"badge,omitempty"`
}

// UserRank is a single user's position on one collection.
type UserRank struct {
	Rank       int `json:"rank"` // 1-based
	Score      int `json:"score"`
	TotalUsers int `json:"totalUsers"`
}

// ConsolidationReport summarizes a duplicate-repair pass.
type ConsolidationReport struct {
	OriginalCount     int `json:"originalCount"`
	ConsolidatedCount int `json:"consolidatedCount"`
	DuplicatesRemoved int `json:"duplicatesRemoved"`
}

// DailyGame is the shared category line-up everyone plays on a given date.
type DailyGame struct {
	Date       string   `json:"date"`
	Categories []string `json:"categories"`
	CreatedAt  int64    `json:"createdAt"`
}

// DailyCompletion is the legacy has-played-today record written when a
// session finishes.
type DailyCompletion struct {
	UserID       string    `json:"userId"`
	Date         string    `json:"date"`
	SessionID    string    `json:"sessionId"`
	TotalScore   int       `json:"totalScore"`
	CorrectCount int       `json:"correctCount"`
	TimeBonus    int       `json:"timeBonus"`
	Badge        BadgeTier `json:"badge"`
	CompletedAt  int64     `json:"completedAt"`
}

// FinalResults is returned to the client when the sixth round is answered.
type FinalResults struct {
	SessionID    string    `json:"sessionId"`
	TotalScore   int       `json:"totalScore"`
	CorrectCount int       `json:"correctCount"`
	TimeBonus    int       `json:"timeBonus"`
	Badge        BadgeTier `json:"badge"`
	BadgeInfo    BadgeInfo `json:"badgeInfo"`
}
