package engine

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by a Room wraps exactly one of these.
var (
	ErrValidation   = errors.New("validation")
	ErrNotFound     = errors.New("not found")
	ErrPermission   = errors.New("permission denied")
	ErrIllegalState = errors.New("illegal state")
	ErrCapacity     = errors.New("capacity")
)

var (
	ErrInvalidName          = fmt.Errorf("%w: invalid player name", ErrValidation)
	ErrInvalidAttributeType = fmt.Errorf("%w: invalid attribute type", ErrValidation)
	ErrInvalidIndex         = fmt.Errorf("%w: index out of range", ErrValidation)
	ErrInvalidTarget        = fmt.Errorf("%w: invalid target", ErrValidation)

	ErrRoomNotFound      = fmt.Errorf("%w: room not found", ErrNotFound)
	ErrPlayerNotFound    = fmt.Errorf("%w: player not found", ErrNotFound)
	ErrAttributeNotFound = fmt.Errorf("%w: attribute not found", ErrNotFound)
	ErrNoReplacement     = fmt.Errorf("%w: no replacement card available", ErrNotFound)

	ErrNotHost = fmt.Errorf("%w: host only", ErrPermission)

	ErrGameAlreadyStarted = fmt.Errorf("%w: game already started", ErrIllegalState)
	ErrGameNotStarted     = fmt.Errorf("%w: game not started", ErrIllegalState)
	ErrWrongPhase         = fmt.Errorf("%w: wrong phase", ErrIllegalState)
	ErrWrongTurn          = fmt.Errorf("%w: not your turn", ErrIllegalState)
	ErrAlreadyVoted       = fmt.Errorf("%w: already voted", ErrIllegalState)
	ErrNotEligible        = fmt.Errorf("%w: not eligible to vote", ErrIllegalState)
	ErrAlreadyRevealed    = fmt.Errorf("%w: already revealed", ErrIllegalState)
	ErrNotAllReady        = fmt.Errorf("%w: not all players are ready", ErrIllegalState)
	ErrAlreadyPaused      = fmt.Errorf("%w: game already paused", ErrIllegalState)
	ErrNotPaused          = fmt.Errorf("%w: game not paused", ErrIllegalState)
	ErrNoTimer            = fmt.Errorf("%w: no timer running", ErrIllegalState)
	ErrPlayerAlive        = fmt.Errorf("%w: player is alive", ErrIllegalState)
	ErrPlayerEliminated   = fmt.Errorf("%w: player is eliminated", ErrIllegalState)
	ErrNotABot            = fmt.Errorf("%w: player is not a bot", ErrIllegalState)
	ErrRoomClosed         = fmt.Errorf("%w: room closed", ErrIllegalState)
	ErrLastHiddenCard     = fmt.Errorf("%w: last hidden attribute must stay hidden", ErrIllegalState)

	ErrRoomFull       = fmt.Errorf("%w: room full", ErrCapacity)
	ErrTooManyRooms   = fmt.Errorf("%w: too many rooms", ErrCapacity)
	ErrNotEnoughCards = fmt.Errorf("%w: not enough cards", ErrCapacity)
	ErrMinPlayers     = fmt.Errorf("%w: not enough players", ErrCapacity)
)

// Kind names the category of err for the wire ("validation", "not_found", ...).
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrPermission):
		return "permission"
	case errors.Is(err, ErrIllegalState):
		return "illegal_state"
	case errors.Is(err, ErrCapacity):
		return "capacity"
	default:
		return "internal"
	}
}
