package service_test

import (
	"context"

	"github.com/avvvet/npat-services/internal/comm"
	"github.com/avvvet/npat-services/internal/gamesvc/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- RoomRepo ---

type MockRoomRepo struct {
	mock.Mock
}

func (m *MockRoomRepo) CreateRoom(ctx context.Context, room models.Room) (*models.Room, *models.RoomPlayer, error) {
	args := m.Called(ctx, room)
	r, _ := args.Get(0).(*models.Room)
	p, _ := args.Get(1).(*models.RoomPlayer)
	return r, p, args.Error(2)
}

func (m *MockRoomRepo) GetRoomByID(ctx context.Context, roomID string) (*models.Room, error) {
	args := m.Called(ctx, roomID)
	r, _ := args.Get(0).(*models.Room)
	return r, args.Error(1)
}

func (m *MockRoomRepo) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	args := m.Called(ctx, code)
	r, _ := args.Get(0).(*models.Room)
	return r, args.Error(1)
}

func (m *MockRoomRepo) UpdateRoundState(ctx context.Context, roomID string, prev, next models.RoundState) error {
	return m.Called(ctx, roomID, prev, next).Error(0)
}

// --- PlayerRepo ---

type MockPlayerRepo struct {
	mock.Mock
}

func (m *MockPlayerRepo) GetPlayersByRoomID(ctx context.Context, roomID string) ([]models.RoomPlayer, error) {
	args := m.Called(ctx, roomID)
	p, _ := args.Get(0).([]models.RoomPlayer)
	return p, args.Error(1)
}

func (m *MockPlayerRepo) JoinRoom(ctx context.Context, roomID, name string) (*models.RoomPlayer, error) {
	args := m.Called(ctx, roomID, name)
	p, _ := args.Get(0).(*models.RoomPlayer)
	return p, args.Error(1)
}

// --- AnswerRepo ---

type MockAnswerRepo struct {
	mock.Mock
}

func (m *MockAnswerRepo) UpsertRoomAnswers(ctx context.Context, answers []models.Answer) error {
	return m.Called(ctx, answers).Error(0)
}

func (m *MockAnswerRepo) UpsertMatchAnswers(ctx context.Context, answers []models.Answer) error {
	return m.Called(ctx, answers).Error(0)
}

func (m *MockAnswerRepo) CountRoomAnswers(ctx context.Context, roomID string, round int) (int, error) {
	args := m.Called(ctx, roomID, round)
	return args.Int(0), args.Error(1)
}

func (m *MockAnswerRepo) CountMatchAnswers(ctx context.Context, matchID string, round int) (int, error) {
	args := m.Called(ctx, matchID, round)
	return args.Int(0), args.Error(1)
}

func (m *MockAnswerRepo) GetRoomAnswers(ctx context.Context, roomID string, round int) ([]models.Answer, error) {
	args := m.Called(ctx, roomID, round)
	a, _ := args.Get(0).([]models.Answer)
	return a, args.Error(1)
}

func (m *MockAnswerRepo) GetMatchAnswers(ctx context.Context, matchID string, round int) ([]models.Answer, error) {
	args := m.Called(ctx, matchID, round)
	a, _ := args.Get(0).([]models.Answer)
	return a, args.Error(1)
}

// --- MatchRepo ---

type MockMatchRepo struct {
	mock.Mock
}

func (m *MockMatchRepo) GetMatchByID(ctx context.Context, matchID string) (*models.Match, error) {
	args := m.Called(ctx, matchID)
	r, _ := args.Get(0).(*models.Match)
	return r, args.Error(1)
}

func (m *MockMatchRepo) GetMatchesForPlayer(ctx context.Context, name string, limit int) ([]models.Match, error) {
	args := m.Called(ctx, name, limit)
	r, _ := args.Get(0).([]models.Match)
	return r, args.Error(1)
}

func (m *MockMatchRepo) UpdateRoundState(ctx context.Context, matchID string, prev, next models.RoundState) error {
	return m.Called(ctx, matchID, prev, next).Error(0)
}

func (m *MockMatchRepo) SettleMatch(ctx context.Context, match *models.Match, prev, next models.RoundState, winner *string) error {
	return m.Called(ctx, match, prev, next, winner).Error(0)
}

func (m *MockMatchRepo) ListExpiredMatches(ctx context.Context, graceSeconds, idleSeconds, limit int) ([]models.Match, error) {
	args := m.Called(ctx, graceSeconds, idleSeconds, limit)
	r, _ := args.Get(0).([]models.Match)
	return r, args.Error(1)
}

// --- QueueRepo ---

type MockQueueRepo struct {
	mock.Mock
}

func (m *MockQueueRepo) Enqueue(ctx context.Context, name string, stake int) (*models.QueueEntry, error) {
	args := m.Called(ctx, name, stake)
	e, _ := args.Get(0).(*models.QueueEntry)
	return e, args.Error(1)
}

func (m *MockQueueRepo) Pair(ctx context.Context, entryID string, state models.RoundState) (*models.Match, error) {
	args := m.Called(ctx, entryID, state)
	r, _ := args.Get(0).(*models.Match)
	return r, args.Error(1)
}

func (m *MockQueueRepo) GetEntry(ctx context.Context, entryID string) (*models.QueueEntry, error) {
	args := m.Called(ctx, entryID)
	e, _ := args.Get(0).(*models.QueueEntry)
	return e, args.Error(1)
}

func (m *MockQueueRepo) CountWaiting(ctx context.Context, stake int) (int, error) {
	args := m.Called(ctx, stake)
	return args.Int(0), args.Error(1)
}

func (m *MockQueueRepo) Cancel(ctx context.Context, entryID string) error {
	return m.Called(ctx, entryID).Error(0)
}

// --- WalletRepo ---

type MockWalletRepo struct {
	mock.Mock
}

func (m *MockWalletRepo) GetOrCreate(ctx context.Context, name string) (*models.Wallet, error) {
	args := m.Called(ctx, name)
	w, _ := args.Get(0).(*models.Wallet)
	return w, args.Error(1)
}

func (m *MockWalletRepo) GetLedger(ctx context.Context, name string, limit int) ([]models.LedgerEntry, error) {
	args := m.Called(ctx, name, limit)
	e, _ := args.Get(0).([]models.LedgerEntry)
	return e, args.Error(1)
}

func (m *MockWalletRepo) LedgerBalance(ctx context.Context, name string) (decimal.Decimal, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// --- ChangePublisher ---

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishChange(ev comm.ChangeEvent) error {
	return m.Called(ev).Error(0)
}

// --- Archiver ---

type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Save(ctx context.Context, summary comm.GameSummary) error {
	return m.Called(ctx, summary).Error(0)
}

// --- Notifier ---

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(message string) {
	m.Called(message)
}
