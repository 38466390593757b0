package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/avvvet/npat-services/internal/comm"
	"github.com/avvvet/npat-services/internal/gamesvc/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type RoomRepo interface {
	CreateRoom(ctx context.Context, room models.Room) (*models.Room, *models.RoomPlayer, error)
	GetRoomByID(ctx context.Context, roomID string) (*models.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)
	UpdateRoundState(ctx context.Context, roomID string, prev, next models.RoundState) error
}

type PlayerRepo interface {
	GetPlayersByRoomID(ctx context.Context, roomID string) ([]models.RoomPlayer, error)
	JoinRoom(ctx context.Context, roomID, name string) (*models.RoomPlayer, error)
}

type AnswerRepo interface {
	UpsertRoomAnswers(ctx context.Context, answers []models.Answer) error
	UpsertMatchAnswers(ctx context.Context, answers []models.Answer) error
	CountRoomAnswers(ctx context.Context, roomID string, round int) (int, error)
	CountMatchAnswers(ctx context.Context, matchID string, round int) (int, error)
	GetRoomAnswers(ctx context.Context, roomID string, round int) ([]models.Answer, error)
	GetMatchAnswers(ctx context.Context, matchID string, round int) ([]models.Answer, error)
}

type MatchRepo interface {
	GetMatchByID(ctx context.Context, matchID string) (*models.Match, error)
	GetMatchesForPlayer(ctx context.Context, name string, limit int) ([]models.Match, error)
	UpdateRoundState(ctx context.Context, matchID string, prev, next models.RoundState) error
	SettleMatch(ctx context.Context, m *models.Match, prev, next models.RoundState, winner *string) error
	ListExpiredMatches(ctx context.Context, graceSeconds, idleSeconds, limit int) ([]models.Match, error)
}

type QueueRepo interface {
	Enqueue(ctx context.Context, name string, stake int) (*models.QueueEntry, error)
	Pair(ctx context.Context, entryID string, state models.RoundState) (*models.Match, error)
	GetEntry(ctx context.Context, entryID string) (*models.QueueEntry, error)
	CountWaiting(ctx context.Context, stake int) (int, error)
	Cancel(ctx context.Context, entryID string) error
}

type WalletRepo interface {
	GetOrCreate(ctx context.Context, name string) (*models.Wallet, error)
	GetLedger(ctx context.Context, name string, limit int) ([]models.LedgerEntry, error)
	LedgerBalance(ctx context.Context, name string) (decimal.Decimal, error)
}

// ChangePublisher announces row changes to every interested client.
type ChangePublisher interface {
	PublishChange(ev comm.ChangeEvent) error
}

type Archiver interface {
	Save(ctx context.Context, summary comm.GameSummary) error
}

type Notifier interface {
	Notify(message string)
}

// emitter wraps the optional collaborators every service shares.
type emitter struct {
	events   ChangePublisher
	archiver Archiver
}

func (e emitter) emit(table, op, recordID, scope, scopeID string) {
	if e.events == nil {
		return
	}
	ev := comm.ChangeEvent{
		Table:    table,
		Op:       op,
		RecordID: recordID,
		Scope:    scope,
		ScopeID:  scopeID,
		At:       time.Now().UTC(),
	}
	if err := e.events.PublishChange(ev); err != nil {
		log.Errorf("Error [emit] %s %s %s: %s", op, table, recordID, err)
	}
}

func (e emitter) archive(ctx context.Context, summary comm.GameSummary) {
	if e.archiver == nil {
		return
	}
	if err := e.archiver.Save(ctx, summary); err != nil {
		log.Warnf("unable to archive %s %s: %s", summary.Mode, summary.GameID, err)
	}
}

const maxNameLen = 30

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLen {
		return "", ErrInvalidName
	}
	return name, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
