package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avvvet/npat-services/internal/gamesvc/engine"
	"github.com/avvvet/npat-services/internal/gamesvc/models"
	"github.com/avvvet/npat-services/internal/gamesvc/store"
	"github.com/google/uuid"
)

// memRooms is an in-memory room, roster and answer store with the same
// guarded-update and upsert behaviour as the postgres stores.
type memRooms struct {
	mu      sync.Mutex
	rooms   map[string]*models.Room
	players map[string][]models.RoomPlayer
	answers map[string]models.Answer // keyed by room|player|round|category
	clock   func() time.Time
}

func newMemRooms(clock func() time.Time) *memRooms {
	return &memRooms{
		rooms:   map[string]*models.Room{},
		players: map[string][]models.RoomPlayer{},
		answers: map[string]models.Answer{},
		clock:   clock,
	}
}

func (m *memRooms) CreateRoom(_ context.Context, room models.Room) (*models.Room, *models.RoomPlayer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.rooms {
		if r.Code == room.Code {
			return nil, nil, store.ErrCodeTaken
		}
	}
	room.ID = uuid.NewString()
	room.CreatedAt = m.clock()
	stored := room
	m.rooms[room.ID] = &stored

	host := models.RoomPlayer{ID: uuid.NewString(), RoomID: room.ID, Name: room.HostName, IsHost: true, JoinedAt: m.clock()}
	m.players[room.ID] = []models.RoomPlayer{host}

	out := stored
	return &out, &host, nil
}

func (m *memRooms) GetRoomByID(_ context.Context, roomID string) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *r
	return &out, nil
}

func (m *memRooms) GetRoomByCode(_ context.Context, code string) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.rooms {
		if r.Code == code {
			out := *r
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memRooms) UpdateRoundState(_ context.Context, roomID string, prev, next models.RoundState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok || r.Status != prev.Status || r.CurrentRound != prev.CurrentRound {
		return store.ErrStaleState
	}
	r.RoundState = next
	return nil
}

func (m *memRooms) GetPlayersByRoomID(_ context.Context, roomID string) ([]models.RoomPlayer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.RoomPlayer, len(m.players[roomID]))
	copy(out, m.players[roomID])
	return out, nil
}

func (m *memRooms) JoinRoom(_ context.Context, roomID, name string) (*models.RoomPlayer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok || r.Status != models.StatusWaiting {
		return nil, store.ErrNotJoinable
	}
	for _, p := range m.players[roomID] {
		if p.Name == name {
			return nil, store.ErrNameTaken
		}
	}
	p := models.RoomPlayer{ID: uuid.NewString(), RoomID: roomID, Name: name, JoinedAt: m.clock()}
	m.players[roomID] = append(m.players[roomID], p)
	return &p, nil
}

func answerKey(a models.Answer) string {
	return fmt.Sprintf("%s|%s|%d|%s", a.GameID, a.PlayerID, a.Round, a.Category)
}

func (m *memRooms) UpsertRoomAnswers(_ context.Context, answers []models.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range answers {
		if prev, ok := m.answers[answerKey(a)]; ok {
			a.ID = prev.ID
		} else {
			a.ID = uuid.NewString()
		}
		m.answers[answerKey(a)] = a
	}
	return nil
}

func (m *memRooms) UpsertMatchAnswers(ctx context.Context, answers []models.Answer) error {
	return m.UpsertRoomAnswers(ctx, answers)
}

func (m *memRooms) CountRoomAnswers(ctx context.Context, roomID string, round int) (int, error) {
	a, err := m.GetRoomAnswers(ctx, roomID, round)
	return len(a), err
}

func (m *memRooms) CountMatchAnswers(ctx context.Context, matchID string, round int) (int, error) {
	return m.CountRoomAnswers(ctx, matchID, round)
}

func (m *memRooms) GetRoomAnswers(_ context.Context, roomID string, round int) ([]models.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Answer
	for _, a := range m.answers {
		if a.GameID == roomID && (round == 0 || a.Round == round) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memRooms) GetMatchAnswers(ctx context.Context, matchID string, round int) ([]models.Answer, error) {
	return m.GetRoomAnswers(ctx, matchID, round)
}

// clockEngine returns an engine driven by *now with letters taken in order.
func clockEngine(now *time.Time, letters ...string) *engine.Engine {
	var mu sync.Mutex
	i := 0
	return &engine.Engine{
		Now: func() time.Time { return *now },
		PickLetter: func() string {
			mu.Lock()
			defer mu.Unlock()
			l := letters[i%len(letters)]
			i++
			return l
		},
	}
}
