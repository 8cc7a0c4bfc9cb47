package domain

import "errors"

// Stable error codes surfaced to API clients.
const (
	CodeInvalidUserID    = "INVALID_USER_ID"
	CodeInvalidSessionID = "INVALID_SESSION_ID"
	CodeInvalidData      = "INVALID_DATA"
	CodeSessionNotFound  = "SESSION_NOT_FOUND"
	CodeAlreadyCompleted = "ALREADY_COMPLETED"
	CodeLimitExceeded    = "LIMIT_EXCEEDED"
	CodeInvalidGameState = "INVALID_GAME_STATE"
	CodeRoundTimeout     = "ROUND_TIMEOUT"
	CodeStoreError       = "REDIS_ERROR"
)

// Error is a business-rule failure with a stable machine-readable code.
type Error struct {
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError builds an error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapStoreError tags an underlying store failure with the store-error code.
func WrapStoreError(err error) *Error {
	return &Error{Code: CodeStoreError, Message: "storage operation failed", cause: err}
}

// CodeOf extracts the stable code from an error chain, or empty.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

var (
	// ErrInvalidUserID is returned before any store access when a user id is empty or malformed.
	ErrInvalidUserID = NewError(CodeInvalidUserID, "user id must be a non-empty string")
	// ErrInvalidSessionID rejects empty or malformed session ids.
	ErrInvalidSessionID = NewError(CodeInvalidSessionID, "session id must be a non-empty string")
	// ErrSessionNotFound is returned when no session exists for the given ids.
	ErrSessionNotFound = NewError(CodeSessionNotFound, "game session not found")
	// ErrSessionExpired rejects sessions older than the 24h playable window.
	ErrSessionExpired = NewError(CodeInvalidGameState, "game session has expired")
	// ErrAlreadyCompleted rejects submissions to a finished session.
	ErrAlreadyCompleted = NewError(CodeAlreadyCompleted, "game session is already completed")
	// ErrRoundAlreadyAnswered rejects a second submission for the same round.
	ErrRoundAlreadyAnswered = NewError(CodeInvalidGameState, "round has already been answered")
	// ErrRoundTimeout rejects submissions arriving past the maximum round duration.
	ErrRoundTimeout = NewError(CodeRoundTimeout, "round timed out before the answer arrived")
	// ErrLimitExceeded is returned when the daily attempt cap is reached.
	ErrLimitExceeded = NewError(CodeLimitExceeded, "daily play limit reached")
	// ErrNoImagesAvailable indicates the image collection cannot fill six rounds.
	ErrNoImagesAvailable = NewError(CodeInvalidData, "not enough image pairs to build a game")
)
