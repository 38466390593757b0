package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/npat-services/internal/comm"
	"github.com/avvvet/npat-services/internal/gamesvc/engine"
	"github.com/avvvet/npat-services/internal/gamesvc/models"
	"github.com/avvvet/npat-services/internal/gamesvc/store"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultMatchRounds = 3
	DefaultMatchTimer  = 60

	// payouts at or above this stake are reported to the ops channel
	notifyStake = 100

	historyLimit = 20
)

type MatchView struct {
	Match     *models.Match `json:"match"`
	Remaining int           `json:"remaining"`
}

type MatchResults struct {
	Match   *models.Match   `json:"match"`
	Correct map[string]int  `json:"correct"` // valid answers per player over all rounds
	Answers []models.Answer `json:"answers"`
	Winner  *string         `json:"winner"`
}

type MatchService struct {
	emitter
	matches  MatchRepo
	answers  AnswerRepo
	engine   *engine.Engine
	notifier Notifier
}

func NewMatchService(matches MatchRepo, answers AnswerRepo, eng *engine.Engine,
	events ChangePublisher, archiver Archiver, notifier Notifier) *MatchService {
	return &MatchService{
		emitter:  emitter{events: events, archiver: archiver},
		matches:  matches,
		answers:  answers,
		engine:   eng,
		notifier: notifier,
	}
}

func (s *MatchService) GetMatch(ctx context.Context, matchID string) (*MatchView, error) {
	m, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return s.view(m), nil
}

// History lists the player's recent matches.
func (s *MatchService) History(ctx context.Context, name string) ([]models.Match, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	return s.matches.GetMatchesForPlayer(ctx, name, historyLimit)
}

// SubmitAnswers stores the player's answers for the current round. Once
// both players have answered every category the round completes.
func (s *MatchService) SubmitAnswers(ctx context.Context, matchID, name string, round int, answers map[string]string) (*MatchView, error) {
	m, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if name, err = matchPlayer(m, name); err != nil {
		return nil, err
	}
	if m.Status != models.StatusPlaying {
		return nil, ErrNotPlaying
	}
	if round != m.CurrentRound {
		return nil, ErrWrongRound
	}

	rows, err := ledgerRows(m.RoundState, m.ID, name, answers)
	if err != nil {
		return nil, err
	}
	if err := s.answers.UpsertMatchAnswers(ctx, rows); err != nil {
		return nil, err
	}
	s.emit("online_match_answers", comm.OpInsert, name, comm.ScopeMatch, m.ID)

	n, err := s.answers.CountMatchAnswers(ctx, m.ID, m.CurrentRound)
	if err != nil {
		return nil, err
	}
	if !engine.RoundReady(m.RoundState, n, len(m.Players()), s.engine.Now()) {
		return s.view(m), nil
	}

	if err := s.completeRound(ctx, m); err != nil {
		return nil, err
	}
	return s.view(m), nil
}

// TimeUp completes round once its timer has run out. Calls for a round that
// is already over return the current state.
func (s *MatchService) TimeUp(ctx context.Context, matchID string, round int) (*MatchView, error) {
	m, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != models.StatusPlaying || m.CurrentRound != round {
		return s.view(m), nil
	}
	if !engine.Expired(m.RoundState, s.engine.Now()) {
		return nil, ErrRoundNotReady
	}

	if err := s.completeRound(ctx, m); err != nil {
		return nil, err
	}
	return s.view(m), nil
}

// NextRound opens the next round after a completed one. Either player may
// ask; whoever loses the race just gets the new state.
func (s *MatchService) NextRound(ctx context.Context, matchID, name string) (*MatchView, error) {
	m, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if name, err = matchPlayer(m, name); err != nil {
		return nil, err
	}
	switch m.Status {
	case models.StatusRoundComplete:
	case models.StatusFinished:
		return s.view(m), nil
	default:
		return nil, ErrRoundNotReady
	}

	next := m.RoundState
	if err := s.engine.Advance(&next); err != nil {
		return nil, err
	}

	err = s.matches.UpdateRoundState(ctx, m.ID, m.RoundState, next)
	if errors.Is(err, store.ErrStaleState) {
		return s.GetMatch(ctx, m.ID)
	}
	if err != nil {
		return nil, err
	}
	m.RoundState = next
	s.emit("online_matches", comm.OpUpdate, m.ID, comm.ScopeMatch, m.ID)
	return s.view(m), nil
}

func (s *MatchService) Results(ctx context.Context, matchID string) (*MatchResults, error) {
	m, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	answers, err := s.answers.GetMatchAnswers(ctx, m.ID, 0)
	if err != nil {
		return nil, err
	}

	counts := engine.CountValid(answers)
	correct := map[string]int{m.Player1Name: counts[m.Player1Name], m.Player2Name: counts[m.Player2Name]}
	return &MatchResults{Match: m, Correct: correct, Answers: answers, Winner: m.WinnerName}, nil
}

// ExpireOverdue completes every round whose timer ran out more than grace
// seconds ago and nobody closed, and opens the next round of matches left
// in round_complete for more than idle seconds. It returns how many matches
// it moved.
func (s *MatchService) ExpireOverdue(ctx context.Context, graceSeconds, idleSeconds int) (int, error) {
	overdue, err := s.matches.ListExpiredMatches(ctx, graceSeconds, idleSeconds, 100)
	if err != nil {
		return 0, err
	}

	closed := 0
	for i := range overdue {
		m := &overdue[i]
		step := s.completeRound
		if m.Status == models.StatusRoundComplete {
			step = s.advanceStalled
		}
		if err := step(ctx, m); err != nil {
			log.Errorf("Error [MatchService.ExpireOverdue] match %s round %d: %s", m.ID, m.CurrentRound, err)
			continue
		}
		closed++
	}
	return closed, nil
}

// completeRound closes the current round; on the last round it settles the
// match. Losing the race to another writer is not an error.
func (s *MatchService) completeRound(ctx context.Context, m *models.Match) error {
	if m.LastRound() {
		return s.settle(ctx, m)
	}

	next := m.RoundState
	if err := s.engine.CompleteRound(&next); err != nil {
		return err
	}
	err := s.matches.UpdateRoundState(ctx, m.ID, m.RoundState, next)
	if errors.Is(err, store.ErrStaleState) {
		return s.reload(ctx, m)
	}
	if err != nil {
		return err
	}
	m.RoundState = next
	s.emit("online_matches", comm.OpUpdate, m.ID, comm.ScopeMatch, m.ID)
	return nil
}

// advanceStalled starts the next round of a match nobody moved on from, so
// its timer takes over again. A stalled last round is settled instead.
func (s *MatchService) advanceStalled(ctx context.Context, m *models.Match) error {
	if m.LastRound() {
		return s.settle(ctx, m)
	}

	next := m.RoundState
	if err := s.engine.Advance(&next); err != nil {
		return err
	}
	err := s.matches.UpdateRoundState(ctx, m.ID, m.RoundState, next)
	if errors.Is(err, store.ErrStaleState) {
		return s.reload(ctx, m)
	}
	if err != nil {
		return err
	}
	m.RoundState = next
	s.emit("online_matches", comm.OpUpdate, m.ID, comm.ScopeMatch, m.ID)
	return nil
}

func (s *MatchService) settle(ctx context.Context, m *models.Match) error {
	answers, err := s.answers.GetMatchAnswers(ctx, m.ID, 0)
	if err != nil {
		return err
	}
	counts := engine.CountValid(answers)
	c1, c2 := counts[m.Player1Name], counts[m.Player2Name]
	winner := engine.Winner(m.Player1Name, c1, m.Player2Name, c2)

	next := m.RoundState
	if err := s.engine.Finish(&next); err != nil {
		return err
	}
	err = s.matches.SettleMatch(ctx, m, m.RoundState, next, winner)
	if errors.Is(err, store.ErrStaleState) {
		return s.reload(ctx, m)
	}
	if err != nil {
		return err
	}
	m.RoundState = next
	m.WinnerName = winner
	s.emit("online_matches", comm.OpUpdate, m.ID, comm.ScopeMatch, m.ID)

	now := s.engine.Now().UTC()
	s.archive(ctx, comm.GameSummary{
		Mode:   comm.ScopeMatch,
		GameID: m.ID,
		Players: []comm.PlayerResult{
			{Name: m.Player1Name, Correct: c1, Score: engine.RoundScore(c1)},
			{Name: m.Player2Name, Correct: c2, Score: engine.RoundScore(c2)},
		},
		Winner:     winner,
		Rounds:     m.TotalRounds,
		Stake:      m.StakeAmount,
		FinishedAt: now,
	})

	if s.notifier != nil && winner != nil && m.StakeAmount >= notifyStake {
		s.notifier.Notify(fmt.Sprintf("🏆 %s won %d coins against %s (%d-%d)",
			*winner, m.StakeAmount*2, opponentOf(m, *winner), max(c1, c2), min(c1, c2)))
	}
	return nil
}

// matchPlayer resolves name, ignoring surrounding spaces, to one of the
// two players of m.
func matchPlayer(m *models.Match, name string) (string, error) {
	name, err := cleanName(name)
	if err != nil || !m.HasPlayer(name) {
		return "", ErrPlayerNotFound
	}
	return name, nil
}

func (s *MatchService) reload(ctx context.Context, m *models.Match) error {
	fresh, err := s.matches.GetMatchByID(ctx, m.ID)
	if err != nil {
		return err
	}
	*m = *fresh
	return nil
}

func (s *MatchService) loadMatch(ctx context.Context, matchID string) (*models.Match, error) {
	if !validID(matchID) {
		return nil, ErrMatchNotFound
	}
	m, err := s.matches.GetMatchByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *MatchService) view(m *models.Match) *MatchView {
	return &MatchView{Match: m, Remaining: engine.Remaining(m.RoundState, s.engine.Now())}
}

func opponentOf(m *models.Match, name string) string {
	if name == m.Player1Name {
		return m.Player2Name
	}
	return m.Player1Name
}
