package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/avvvet/npat-services/internal/comm"
	"github.com/avvvet/npat-services/internal/gamesvc/engine"
	"github.com/avvvet/npat-services/internal/gamesvc/models"
	"github.com/avvvet/npat-services/internal/gamesvc/store"
	log "github.com/sirupsen/logrus"
)

type QueueStatus struct {
	Entry   *models.QueueEntry `json:"entry"`
	Waiting int                `json:"waiting"` // players waiting at this stake
}

type MatchmakingService struct {
	emitter
	queue   QueueRepo
	wallets WalletRepo
	engine  *engine.Engine
	rounds  int
	timer   int
}

func NewMatchmakingService(queue QueueRepo, wallets WalletRepo, eng *engine.Engine, events ChangePublisher) *MatchmakingService {
	return &MatchmakingService{
		emitter: emitter{events: events},
		queue:   queue,
		wallets: wallets,
		engine:  eng,
		rounds:  DefaultMatchRounds,
		timer:   DefaultMatchTimer,
	}
}

// WithMatchSettings overrides the rounds and timer of newly paired matches.
func (s *MatchmakingService) WithMatchSettings(rounds, timer int) *MatchmakingService {
	if rounds > 0 {
		s.rounds = rounds
	}
	if timer > 0 {
		s.timer = timer
	}
	return s
}

// Join puts name in the queue for stake, replacing any entry the player
// already had, and pairs right away when someone is waiting.
func (s *MatchmakingService) Join(ctx context.Context, name string, stake int) (*QueueStatus, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	if !models.ValidStake(stake) {
		return nil, ErrInvalidStake
	}

	w, err := s.wallets.GetOrCreate(ctx, name)
	if err != nil {
		return nil, err
	}
	if w.Coins < int64(stake) {
		return nil, ErrInsufficientCoins
	}

	entry, err := s.queue.Enqueue(ctx, name, stake)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyQueued) {
			return nil, ErrStaleState
		}
		return nil, err
	}
	s.emit("matchmaking_queue", comm.OpInsert, entry.ID, comm.ScopeQueue, strconv.Itoa(stake))

	return s.pairAndReport(ctx, entry)
}

// Status reports the entry and retries pairing while it is still waiting.
func (s *MatchmakingService) Status(ctx context.Context, entryID string) (*QueueStatus, error) {
	entry, err := s.loadEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status == models.QueueWaiting {
		return s.pairAndReport(ctx, entry)
	}
	return s.report(ctx, entry)
}

func (s *MatchmakingService) Cancel(ctx context.Context, entryID string) error {
	entry, err := s.loadEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if err := s.queue.Cancel(ctx, entryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// paired in the meantime
			return ErrGameInProgress
		}
		return err
	}
	s.emit("matchmaking_queue", comm.OpDelete, entryID, comm.ScopeQueue, strconv.Itoa(entry.StakeAmount))
	return nil
}

func (s *MatchmakingService) pairAndReport(ctx context.Context, entry *models.QueueEntry) (*QueueStatus, error) {
	state := models.NewRoundState(s.rounds, s.timer)
	if err := s.engine.Begin(&state); err != nil {
		return nil, err
	}

	match, err := s.queue.Pair(ctx, entry.ID, state)
	switch {
	case errors.Is(err, store.ErrInsufficientCoins):
		return nil, ErrInsufficientCoins
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrQueueNotFound
	case err != nil:
		return nil, err
	}

	if match != nil {
		log.Infof("paired %s and %s at stake %d into match %s", match.Player1Name, match.Player2Name, match.StakeAmount, match.ID)
		s.emit("online_matches", comm.OpInsert, match.ID, comm.ScopeMatch, match.ID)
		s.emit("matchmaking_queue", comm.OpUpdate, entry.ID, comm.ScopeQueue, strconv.Itoa(entry.StakeAmount))
	}

	fresh, err := s.queue.GetEntry(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	return s.report(ctx, fresh)
}

func (s *MatchmakingService) report(ctx context.Context, entry *models.QueueEntry) (*QueueStatus, error) {
	waiting, err := s.queue.CountWaiting(ctx, entry.StakeAmount)
	if err != nil {
		return nil, err
	}
	return &QueueStatus{Entry: entry, Waiting: waiting}, nil
}

func (s *MatchmakingService) loadEntry(ctx context.Context, entryID string) (*models.QueueEntry, error) {
	if !validID(entryID) {
		return nil, ErrQueueNotFound
	}
	entry, err := s.queue.GetEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrQueueNotFound
		}
		return nil, err
	}
	return entry, nil
}
