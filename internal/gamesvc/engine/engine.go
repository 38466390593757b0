// Package engine holds the round lifecycle rules for rooms and online
// matches. It never touches storage; callers persist the mutated state.
package engine

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/avvvet/npat-services/internal/gamesvc/models"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

const MinPlayers = 2

var (
	ErrIllegalTransition = errors.New("illegal round transition")
	ErrFinished          = errors.New("game already finished")
	ErrNotEnoughPlayers  = errors.New("at least 2 players are needed to start")
	ErrRoundsRemaining   = errors.New("game can only finish on the last round")
)

type Engine struct {
	Now        func() time.Time
	PickLetter func() string
}

func New() *Engine {
	return &Engine{
		Now:        time.Now,
		PickLetter: RandomLetter,
	}
}

// RandomLetter draws uniformly from A-Z.
func RandomLetter() string {
	i := rand.IntN(len(alphabet))
	return alphabet[i : i+1]
}

// Start moves a waiting room into its first round.
func (e *Engine) Start(s *models.RoundState, players int) error {
	if s.Status == models.StatusFinished {
		return ErrFinished
	}
	if s.Status != models.StatusWaiting {
		return ErrIllegalTransition
	}
	if players < MinPlayers {
		return ErrNotEnoughPlayers
	}
	e.beginRound(s, 1)
	return nil
}

// Begin starts round 1 for a freshly paired match, where both players are implied.
func (e *Engine) Begin(s *models.RoundState) error {
	return e.Start(s, MinPlayers)
}

// CompleteRound closes the current round of an online match.
func (e *Engine) CompleteRound(s *models.RoundState) error {
	if s.Status == models.StatusFinished {
		return ErrFinished
	}
	if s.Status != models.StatusPlaying {
		return ErrIllegalTransition
	}
	s.Status = models.StatusRoundComplete
	return nil
}

// Advance opens the next round, or finishes the game after the last one.
func (e *Engine) Advance(s *models.RoundState) error {
	switch s.Status {
	case models.StatusFinished:
		return ErrFinished
	case models.StatusPlaying, models.StatusRoundComplete:
	default:
		return ErrIllegalTransition
	}

	if s.LastRound() {
		s.Status = models.StatusFinished
		return nil
	}
	e.beginRound(s, s.CurrentRound+1)
	return nil
}

func (e *Engine) Finish(s *models.RoundState) error {
	switch s.Status {
	case models.StatusFinished:
		return ErrFinished
	case models.StatusPlaying, models.StatusRoundComplete:
	default:
		return ErrIllegalTransition
	}
	if !s.LastRound() {
		return ErrRoundsRemaining
	}
	s.Status = models.StatusFinished
	return nil
}

func (e *Engine) beginRound(s *models.RoundState, round int) {
	now := e.Now()
	s.CurrentRound = round
	s.CurrentLetter = e.PickLetter()
	s.RoundStartedAt = &now
	s.Status = models.StatusPlaying
}

// Remaining is the whole seconds left on the round timer, never negative.
func Remaining(s models.RoundState, now time.Time) int {
	if s.RoundStartedAt == nil {
		return s.TimerDuration
	}
	elapsed := int(now.Sub(*s.RoundStartedAt).Milliseconds() / 1000)
	if elapsed < 0 {
		elapsed = 0
	}
	left := s.TimerDuration - elapsed
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether the round timer of a playing round ran out.
func Expired(s models.RoundState, now time.Time) bool {
	return s.Status == models.StatusPlaying && s.RoundStartedAt != nil && Remaining(s, now) == 0
}

// RoundReady is true once every player filled every category, or time is up.
func RoundReady(s models.RoundState, answers, players int, now time.Time) bool {
	if s.Status != models.StatusPlaying {
		return false
	}
	if players > 0 && answers >= len(s.Categories)*players {
		return true
	}
	return Expired(s, now)
}
