package service

import (
	"errors"

	"github.com/avvvet/npat-services/internal/gamesvc/engine"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrMatchNotFound     = errors.New("match not found")
	ErrQueueNotFound     = errors.New("queue entry not found")
	ErrPlayerNotFound    = errors.New("player not in this game")
	ErrGameInProgress    = errors.New("this game has already started")
	ErrNameTaken         = errors.New("that name is already taken in this room")
	ErrInvalidName       = errors.New("player name must be 1-30 characters")
	ErrInvalidSettings   = errors.New("rounds must be 1-10 and timer 30-180 seconds in steps of 15")
	ErrNotHost           = errors.New("only the host can do that")
	ErrNotPlaying        = errors.New("no round is being played")
	ErrRoundNotReady     = errors.New("round is not complete yet")
	ErrWrongRound        = errors.New("answers are for a different round")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrInvalidStake      = errors.New("stake must be one of the offered amounts")
	ErrInsufficientCoins = errors.New("not enough coins for this stake")
	ErrStaleState        = errors.New("game changed meanwhile, reload and try again")
)

// error codes sent to clients
const (
	CodeNotFound = "not_found"
	CodeConflict = "conflict"
	CodeInvalid  = "invalid_request"
	CodeServer   = "server_error"
)

// ErrorCode classifies err for the wire.
func ErrorCode(err error) string {
	switch {
	case isAny(err, ErrRoomNotFound, ErrMatchNotFound, ErrQueueNotFound, ErrPlayerNotFound):
		return CodeNotFound
	case isAny(err, ErrGameInProgress, ErrNameTaken, ErrNotHost, ErrNotPlaying, ErrRoundNotReady,
		ErrWrongRound, ErrInsufficientCoins, ErrStaleState,
		engine.ErrIllegalTransition, engine.ErrFinished, engine.ErrNotEnoughPlayers, engine.ErrRoundsRemaining):
		return CodeConflict
	case isAny(err, ErrInvalidName, ErrInvalidSettings, ErrUnknownCategory, ErrInvalidStake):
		return CodeInvalid
	default:
		return CodeServer
	}
}

// ErrorMessage is the user facing text; internal failures stay generic.
func ErrorMessage(err error) string {
	if ErrorCode(err) == CodeServer {
		return "something went wrong, please try again"
	}
	return err.Error()
}

func isAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
