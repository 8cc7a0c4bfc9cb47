package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"spotai-game-service/internal/app"
	"spotai-game-service/internal/domain"
)

// Handler exposes the game and leaderboard operations as a JSON API. Every
// response carries the {success, error?} envelope; store failures never leak
// as unhandled errors.
type Handler struct {
	service     *app.GameService
	leaderboard app.Leaderboard
}

func NewHandler(service *app.GameService, leaderboard app.Leaderboard) *Handler {
	return &Handler{service: service, leaderboard: leaderboard}
}

// Register wires the routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/game/init", h.initGame)
	mux.HandleFunc("POST /api/game/start", h.startGame)
	mux.HandleFunc("POST /api/game/answer", h.submitAnswer)
	mux.HandleFunc("GET /api/leaderboard/{type}", h.getLeaderboard)
	mux.HandleFunc("GET /api/leaderboard/{type}/rank", h.getUserRank)
	mux.HandleFunc("GET /api/leaderboard/{type}/count", h.getParticipantCount)
}

type initRequest struct {
	UserID string `json:"userId"`
}

type startRequest struct {
	UserID string `json:"userId"`
}

type answerRequest struct {
	UserID        string        `json:"userId"`
	SessionID     string        `json:"sessionId"`
	RoundNumber   int           `json:"roundNumber"`
	Answer        domain.Answer `json:"answer"`
	TimeRemaining int64         `json:"timeRemainingMs"`
}

func (h *Handler) initGame(w http.ResponseWriter, r *http.Request) {
	var req initRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewError(domain.CodeInvalidData, "invalid request body"))
		return
	}
	result, err := h.service.InitializeGame(r.Context(), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]any{
		"proceed":     result.Proceed,
		"status":      result.Status,
		"bestSession": result.BestSession,
		"completion":  result.Completion,
	})
}

func (h *Handler) startGame(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewError(domain.CodeInvalidData, "invalid request body"))
		return
	}
	result, err := h.service.StartGame(r.Context(), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]any{
		"sessionId":     result.SessionID,
		"attemptNumber": result.AttemptNumber,
		"currentRound":  result.CurrentRound,
		"status":        result.Status,
	})
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewError(domain.CodeInvalidData, "invalid request body"))
		return
	}
	result, err := h.service.SubmitAnswer(r.Context(), req.UserID, req.SessionID, req.RoundNumber, req.Answer, req.TimeRemaining)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, map[string]any{
		"isCorrect":       result.IsCorrect,
		"correctAnswer":   result.CorrectAnswer,
		"aiImagePosition": result.AIImagePosition,
		"roundScore":      result.RoundScore,
		"totalScore":      result.TotalScore,
		"gameComplete":    result.GameComplete,
		"nextRound":       result.NextRound,
		"finalResults":    result.FinalResults,
	})
}

func (h *Handler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	typ := domain.LeaderboardType(r.PathValue("type"))
	if !typ.Valid() {
		writeError(w, domain.NewError(domain.CodeInvalidData, "unknown leaderboard type"))
		return
	}
	limit := queryInt(r, "limit", 10)
	offset := queryInt(r, "offset", 0)

	entries, err := h.leaderboard.Get(r.Context(), typ, limit, offset)
	if err != nil {
		writeError(w, domain.WrapStoreError(err))
		return
	}
	writeSuccess(w, map[string]any{"type": typ, "entries": entries})
}

func (h *Handler) getUserRank(w http.ResponseWriter, r *http.Request) {
	typ := domain.LeaderboardType(r.PathValue("type"))
	if !typ.Valid() {
		writeError(w, domain.NewError(domain.CodeInvalidData, "unknown leaderboard type"))
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, domain.ErrInvalidUserID)
		return
	}
	rank, err := h.leaderboard.UserRank(r.Context(), typ, userID)
	if err != nil {
		writeError(w, domain.WrapStoreError(err))
		return
	}
	writeSuccess(w, map[string]any{"type": typ, "rank": rank})
}

func (h *Handler) getParticipantCount(w http.ResponseWriter, r *http.Request) {
	typ := domain.LeaderboardType(r.PathValue("type"))
	if !typ.Valid() {
		writeError(w, domain.NewError(domain.CodeInvalidData, "unknown leaderboard type"))
		return
	}
	count, err := h.leaderboard.ParticipantCount(r.Context(), typ)
	if err != nil {
		writeError(w, domain.WrapStoreError(err))
		return
	}
	writeSuccess(w, map[string]any{"type": typ, "count": count})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func writeSuccess(w http.ResponseWriter, payload map[string]any) {
	payload["success"] = true
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.Errorf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := domain.CodeOf(err)
	status := http.StatusBadRequest
	switch code {
	case domain.CodeSessionNotFound:
		status = http.StatusNotFound
	case domain.CodeLimitExceeded:
		status = http.StatusTooManyRequests
	case domain.CodeStoreError:
		status = http.StatusInternalServerError
	case "":
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   err.Error(),
		"code":    code,
	})
}
