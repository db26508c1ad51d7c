package game

import "errors"

// Rejections returned by table and player operations. Callers match them
// with errors.Is; operations wrap them with seat or action context.
var (
	ErrSeatTaken           = errors.New("seat already taken")
	ErrSeatOutOfRange      = errors.New("seat index out of range")
	ErrSeatEmpty           = errors.New("seat is empty")
	ErrGameNotJoinable     = errors.New("game already started or ended")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrPlayerInactive      = errors.New("player is not active in this hand")
	ErrBetTooSmall         = errors.New("bet too small")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrTooFewPlayers       = errors.New("too few players")
	ErrNotAllReady         = errors.New("not all players are ready")
	ErrHandNotRunning      = errors.New("no hand in progress")
	ErrUnknownAction       = errors.New("unknown action")
	ErrInvalidConfig       = errors.New("invalid table config")
)
