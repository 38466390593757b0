package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/avvvet/npat-services/internal/comm"
	"github.com/avvvet/npat-services/internal/gamesvc/engine"
	"github.com/avvvet/npat-services/internal/gamesvc/models"
	"github.com/avvvet/npat-services/internal/gamesvc/store"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultRoomRounds = 5
	MaxRoomRounds     = 10
	DefaultRoomTimer  = 60
	MinRoomTimer      = 30
	MaxRoomTimer      = 180
	RoomTimerStep     = 15

	roomCodeLen      = 6
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeAttempts = 5
)

type RoomView struct {
	Room      *models.Room        `json:"room"`
	Players   []models.RoomPlayer `json:"players"`
	Remaining int                 `json:"remaining"` // seconds left in the current round
}

type RoundResults struct {
	RoomID    string            `json:"room_id"`
	Round     int               `json:"round"`
	Ready     bool              `json:"ready"` // round may be advanced
	Answers   []models.Answer   `json:"answers"`
	Standings []engine.Standing `json:"standings"`
}

type FinalResults struct {
	Room        *models.Room      `json:"room"`
	Leaderboard []engine.Standing `json:"leaderboard"`
}

type RoomService struct {
	emitter
	rooms   RoomRepo
	players PlayerRepo
	answers AnswerRepo
	engine  *engine.Engine
}

func NewRoomService(rooms RoomRepo, players PlayerRepo, answers AnswerRepo, eng *engine.Engine,
	events ChangePublisher, archiver Archiver) *RoomService {
	return &RoomService{
		emitter: emitter{events: events, archiver: archiver},
		rooms:   rooms,
		players: players,
		answers: answers,
		engine:  eng,
	}
}

// CreateRoom opens a waiting room with host as its first player. Zero
// rounds or timer pick the defaults.
func (s *RoomService) CreateRoom(ctx context.Context, host string, totalRounds, timer int) (*RoomView, error) {
	host, err := cleanName(host)
	if err != nil {
		return nil, err
	}
	if totalRounds == 0 {
		totalRounds = DefaultRoomRounds
	}
	if timer == 0 {
		timer = DefaultRoomTimer
	}
	if totalRounds < 1 || totalRounds > MaxRoomRounds ||
		timer < MinRoomTimer || timer > MaxRoomTimer || timer%RoomTimerStep != 0 {
		return nil, ErrInvalidSettings
	}

	for attempt := 0; attempt < roomCodeAttempts; attempt++ {
		code, err := newRoomCode()
		if err != nil {
			return nil, err
		}

		room, hostPlayer, err := s.rooms.CreateRoom(ctx, models.Room{
			Code:       code,
			HostName:   host,
			RoundState: models.NewRoundState(totalRounds, timer),
		})
		if errors.Is(err, store.ErrCodeTaken) {
			log.Warnf("room code %s collided, retrying", code)
			continue
		}
		if err != nil {
			return nil, err
		}

		s.emit("game_rooms", comm.OpInsert, room.ID, comm.ScopeRoom, room.ID)
		return &RoomView{Room: room, Players: []models.RoomPlayer{*hostPlayer}, Remaining: room.TimerDuration}, nil
	}
	return nil, fmt.Errorf("no free room code after %d attempts", roomCodeAttempts)
}

// JoinRoom adds name to the waiting room behind code.
func (s *RoomService) JoinRoom(ctx context.Context, code, name string) (*RoomView, *models.RoomPlayer, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, nil, err
	}

	room, err := s.rooms.GetRoomByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrRoomNotFound
		}
		return nil, nil, err
	}
	if room.Status != models.StatusWaiting {
		return nil, nil, ErrGameInProgress
	}

	player, err := s.players.JoinRoom(ctx, room.ID, name)
	switch {
	case errors.Is(err, store.ErrNotJoinable):
		return nil, nil, ErrGameInProgress
	case errors.Is(err, store.ErrNameTaken):
		return nil, nil, ErrNameTaken
	case err != nil:
		return nil, nil, err
	}

	s.emit("game_players", comm.OpInsert, player.ID, comm.ScopeRoom, room.ID)

	view, err := s.GetRoom(ctx, room.ID)
	if err != nil {
		return nil, nil, err
	}
	return view, player, nil
}

func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*RoomView, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	players, err := s.players.GetPlayersByRoomID(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	return &RoomView{Room: room, Players: players, Remaining: engine.Remaining(room.RoundState, s.engine.Now())}, nil
}

// StartGame is host only and needs at least two players.
func (s *RoomService) StartGame(ctx context.Context, roomID, name string) (*RoomView, error) {
	room, players, err := s.loadAsHost(ctx, roomID, name)
	if err != nil {
		return nil, err
	}

	next := room.RoundState
	if err := s.engine.Start(&next, len(players)); err != nil {
		if errors.Is(err, engine.ErrIllegalTransition) {
			return nil, ErrGameInProgress
		}
		return nil, err
	}
	if err := s.commit(ctx, room, next); err != nil {
		return nil, err
	}
	return &RoomView{Room: room, Players: players, Remaining: room.TimerDuration}, nil
}

// SubmitAnswers upserts one row per category for the player. Missing
// categories are stored as empty answers.
func (s *RoomService) SubmitAnswers(ctx context.Context, roomID, name string, round int, answers map[string]string) ([]models.Answer, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status != models.StatusPlaying {
		return nil, ErrNotPlaying
	}
	if round != room.CurrentRound {
		return nil, ErrWrongRound
	}

	players, err := s.players.GetPlayersByRoomID(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	player, ok := findPlayer(players, name)
	if !ok {
		return nil, ErrPlayerNotFound
	}

	rows, err := ledgerRows(room.RoundState, room.ID, player.ID, answers)
	if err != nil {
		return nil, err
	}
	if err := s.answers.UpsertRoomAnswers(ctx, rows); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}

	s.emit("player_answers", comm.OpInsert, player.ID, comm.ScopeRoom, room.ID)
	return rows, nil
}

// RoundResults scores one round; round 0 means the current one.
func (s *RoomService) RoundResults(ctx context.Context, roomID string, round int) (*RoundResults, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if round == 0 {
		round = room.CurrentRound
	}
	if round < 1 || round > room.CurrentRound {
		return nil, ErrWrongRound
	}

	players, err := s.players.GetPlayersByRoomID(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	answers, err := s.answers.GetRoomAnswers(ctx, room.ID, round)
	if err != nil {
		return nil, err
	}

	ready := round < room.CurrentRound || room.Status == models.StatusFinished ||
		engine.RoundReady(room.RoundState, len(answers), len(players), s.engine.Now())

	return &RoundResults{
		RoomID:    room.ID,
		Round:     round,
		Ready:     ready,
		Answers:   answers,
		Standings: engine.Tally(players, answers),
	}, nil
}

// AdvanceRound is host only. The round must be complete: every player
// answered every category, or the timer ran out. On the last round the
// game finishes.
func (s *RoomService) AdvanceRound(ctx context.Context, roomID, name string) (*RoomView, error) {
	room, players, err := s.loadAsHost(ctx, roomID, name)
	if err != nil {
		return nil, err
	}
	if room.Status != models.StatusPlaying {
		if room.Status == models.StatusFinished {
			return nil, engine.ErrFinished
		}
		return nil, ErrNotPlaying
	}

	n, err := s.answers.CountRoomAnswers(ctx, room.ID, room.CurrentRound)
	if err != nil {
		return nil, err
	}
	if !engine.RoundReady(room.RoundState, n, len(players), s.engine.Now()) {
		return nil, ErrRoundNotReady
	}

	next := room.RoundState
	if err := s.engine.Advance(&next); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, room, next); err != nil {
		return nil, err
	}
	if room.Status == models.StatusFinished {
		s.archiveRoom(ctx, room, players)
	}
	return &RoomView{Room: room, Players: players, Remaining: engine.Remaining(room.RoundState, s.engine.Now())}, nil
}

// FinishGame is host only and allowed once the last round is complete. A
// room already finished by AdvanceRound is returned as it is.
func (s *RoomService) FinishGame(ctx context.Context, roomID, name string) (*RoomView, error) {
	room, players, err := s.loadAsHost(ctx, roomID, name)
	if err != nil {
		return nil, err
	}
	if room.Status == models.StatusFinished {
		return &RoomView{Room: room, Players: players}, nil
	}

	next := room.RoundState
	if err := s.engine.Finish(&next); err != nil {
		return nil, err
	}
	if room.Status == models.StatusPlaying {
		n, err := s.answers.CountRoomAnswers(ctx, room.ID, room.CurrentRound)
		if err != nil {
			return nil, err
		}
		if !engine.RoundReady(room.RoundState, n, len(players), s.engine.Now()) {
			return nil, ErrRoundNotReady
		}
	}
	if err := s.commit(ctx, room, next); err != nil {
		return nil, err
	}
	s.archiveRoom(ctx, room, players)
	return &RoomView{Room: room, Players: players}, nil
}

// FinalResults ranks every player over all rounds played.
func (s *RoomService) FinalResults(ctx context.Context, roomID string) (*FinalResults, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	players, err := s.players.GetPlayersByRoomID(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	answers, err := s.answers.GetRoomAnswers(ctx, room.ID, 0)
	if err != nil {
		return nil, err
	}
	return &FinalResults{Room: room, Leaderboard: engine.Leaderboard(engine.Tally(players, answers))}, nil
}

// commit persists next over room's current state and updates room in place.
func (s *RoomService) commit(ctx context.Context, room *models.Room, next models.RoundState) error {
	if err := s.rooms.UpdateRoundState(ctx, room.ID, room.RoundState, next); err != nil {
		if errors.Is(err, store.ErrStaleState) {
			return ErrStaleState
		}
		return err
	}
	room.RoundState = next
	s.emit("game_rooms", comm.OpUpdate, room.ID, comm.ScopeRoom, room.ID)
	return nil
}

func (s *RoomService) loadRoom(ctx context.Context, roomID string) (*models.Room, error) {
	if !validID(roomID) {
		return nil, ErrRoomNotFound
	}
	room, err := s.rooms.GetRoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}

func (s *RoomService) loadAsHost(ctx context.Context, roomID, name string) (*models.Room, []models.RoomPlayer, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	players, err := s.players.GetPlayersByRoomID(ctx, room.ID)
	if err != nil {
		return nil, nil, err
	}
	p, ok := findPlayer(players, name)
	if !ok {
		return nil, nil, ErrPlayerNotFound
	}
	if !p.IsHost {
		return nil, nil, ErrNotHost
	}
	return room, players, nil
}

func (s *RoomService) archiveRoom(ctx context.Context, room *models.Room, players []models.RoomPlayer) {
	answers, err := s.answers.GetRoomAnswers(ctx, room.ID, 0)
	if err != nil {
		log.Warnf("unable to load answers for archive of room %s: %s", room.ID, err)
		return
	}

	board := engine.Leaderboard(engine.Tally(players, answers))
	summary := comm.GameSummary{
		Mode:       comm.ScopeRoom,
		GameID:     room.ID,
		Rounds:     room.CurrentRound,
		FinishedAt: s.engine.Now().UTC(),
	}
	for _, st := range board {
		summary.Players = append(summary.Players, comm.PlayerResult{Name: st.Name, Correct: st.Correct, Score: st.Score})
	}
	if len(board) > 1 && board[0].Score > board[1].Score {
		summary.Winner = &board[0].Name
	}
	s.archive(ctx, summary)
}

func findPlayer(players []models.RoomPlayer, name string) (models.RoomPlayer, bool) {
	name = strings.TrimSpace(name)
	for _, p := range players {
		if p.Name == name {
			return p, true
		}
	}
	return models.RoomPlayer{}, false
}

// ledgerRows validates the submitted categories and computes validity once,
// against the round's own letter.
func ledgerRows(state models.RoundState, gameID, playerID string, answers map[string]string) ([]models.Answer, error) {
	for category := range answers {
		if !state.HasCategory(category) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
		}
	}

	rows := make([]models.Answer, 0, len(state.Categories))
	for _, category := range state.Categories {
		text := strings.TrimSpace(answers[category])
		rows = append(rows, models.Answer{
			GameID:   gameID,
			PlayerID: playerID,
			Round:    state.CurrentRound,
			Category: category,
			Text:     text,
			Valid:    engine.IsValid(text, state.CurrentLetter),
		})
	}
	return rows, nil
}

func newRoomCode() (string, error) {
	limit := big.NewInt(int64(len(roomCodeAlphabet)))
	b := make([]byte, roomCodeLen)
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("room code: %w", err)
		}
		b[i] = roomCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}
