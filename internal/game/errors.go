// internal/game/errors.go
package game

import "errors"

// All game errors are recoverable and scoped to the call that produced them:
// a failed operation leaves the room exactly as it was before the call.
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrDuplicatePlayer   = errors.New("player already in room")
	ErrRoomFull          = errors.New("room is full")
	ErrInvalidPassword   = errors.New("invalid room password")
	ErrNotHost           = errors.New("only the host can start the game")
	ErrNotEnoughPlayers  = errors.New("not enough players to start")
	ErrGameStarted       = errors.New("game already started")
	ErrGameNotStarted    = errors.New("game has not started")
	ErrGameEnded         = errors.New("game has ended")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrTurnSkipped       = errors.New("turn skipped")
	ErrInvalidCardIndex  = errors.New("card index out of range")
	ErrTargetRequired    = errors.New("card requires a target player")
	ErrInvalidTarget     = errors.New("invalid target player")
	ErrNoPointsToSteal   = errors.New("target has no points to steal")
	ErrPlayerNotFound    = errors.New("player not in room")
)
