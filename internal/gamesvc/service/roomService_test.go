package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/npat-services/internal/comm"
	"github.com/avvvet/npat-services/internal/gamesvc/engine"
	"github.com/avvvet/npat-services/internal/gamesvc/models"
	"github.com/avvvet/npat-services/internal/gamesvc/service"
	"github.com/avvvet/npat-services/internal/gamesvc/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func quietPublisher() *MockPublisher {
	p := &MockPublisher{}
	p.On("PublishChange", mock.Anything).Return(nil).Maybe()
	return p
}

func newRoomFixture(now *time.Time, letters ...string) (*service.RoomService, *memRooms, *MockArchiver) {
	mem := newMemRooms(func() time.Time { return *now })
	arch := &MockArchiver{}
	arch.On("Save", mock.Anything, mock.Anything).Return(nil).Maybe()
	svc := service.NewRoomService(mem, mem, mem, clockEngine(now, letters...), quietPublisher(), arch)
	return svc, mem, arch
}

func fullAnswers(letter string) map[string]string {
	return map[string]string{
		"Name":   letter + "ob",
		"Place":  letter + "erlin",
		"Animal": letter + "ear",
		"Thing":  letter + "all",
	}
}

func TestCreateRoom(t *testing.T) {
	ctx := context.Background()
	now := t0

	t.Run("defaults", func(t *testing.T) {
		svc, _, _ := newRoomFixture(&now, "B")
		view, err := svc.CreateRoom(ctx, "  alice ", 0, 0)
		require.NoError(t, err)

		assert.Len(t, view.Room.Code, 6)
		assert.Regexp(t, `^[A-Z0-9]{6}$`, view.Room.Code)
		assert.Equal(t, "alice", view.Room.HostName)
		assert.Equal(t, models.StatusWaiting, view.Room.Status)
		assert.Equal(t, service.DefaultRoomRounds, view.Room.TotalRounds)
		assert.Equal(t, service.DefaultRoomTimer, view.Room.TimerDuration)
		assert.Equal(t, models.Categories, view.Room.Categories)
		require.Len(t, view.Players, 1)
		assert.True(t, view.Players[0].IsHost)
	})

	t.Run("bounds", func(t *testing.T) {
		svc, _, _ := newRoomFixture(&now, "B")
		for _, c := range []struct{ rounds, timer int }{{11, 60}, {-1, 60}, {3, 20}, {3, 195}, {3, 50}} {
			_, err := svc.CreateRoom(ctx, "alice", c.rounds, c.timer)
			assert.ErrorIs(t, err, service.ErrInvalidSettings, "rounds=%d timer=%d", c.rounds, c.timer)
		}
		_, err := svc.CreateRoom(ctx, "alice", 10, 180)
		assert.NoError(t, err)
		_, err = svc.CreateRoom(ctx, "   ", 3, 60)
		assert.ErrorIs(t, err, service.ErrInvalidName)
	})

	t.Run("retries code collisions", func(t *testing.T) {
		rooms := &MockRoomRepo{}
		room := &models.Room{ID: "3b2f8a4e-6d1c-4f7a-9b0e-1a2b3c4d5e6f", Code: "ABC123", HostName: "alice", RoundState: models.NewRoundState(5, 60)}
		host := &models.RoomPlayer{ID: "p1", RoomID: room.ID, Name: "alice", IsHost: true}
		rooms.On("CreateRoom", mock.Anything, mock.Anything).Return(nil, nil, store.ErrCodeTaken).Once()
		rooms.On("CreateRoom", mock.Anything, mock.Anything).Return(room, host, nil).Once()

		svc := service.NewRoomService(rooms, &MockPlayerRepo{}, &MockAnswerRepo{}, engine.New(), quietPublisher(), nil)
		view, err := svc.CreateRoom(ctx, "alice", 5, 60)
		require.NoError(t, err)
		assert.Equal(t, "ABC123", view.Room.Code)
		rooms.AssertNumberOfCalls(t, "CreateRoom", 2)
	})
}

func TestJoinRoom(t *testing.T) {
	ctx := context.Background()
	now := t0
	svc, _, _ := newRoomFixture(&now, "B")

	view, err := svc.CreateRoom(ctx, "alice", 2, 60)
	require.NoError(t, err)

	t.Run("case insensitive code", func(t *testing.T) {
		joined, p, err := svc.JoinRoom(ctx, " "+strings.ToLower(view.Room.Code)+" ", "bob")
		require.NoError(t, err)
		assert.Equal(t, "bob", p.Name)
		assert.False(t, p.IsHost)
		assert.Len(t, joined.Players, 2)
	})

	t.Run("name taken", func(t *testing.T) {
		_, _, err := svc.JoinRoom(ctx, view.Room.Code, "bob")
		assert.ErrorIs(t, err, service.ErrNameTaken)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, _, err := svc.JoinRoom(ctx, "NOPE00", "carol")
		assert.ErrorIs(t, err, service.ErrRoomNotFound)
	})

	t.Run("already started", func(t *testing.T) {
		_, err := svc.StartGame(ctx, view.Room.ID, "alice")
		require.NoError(t, err)

		_, _, err = svc.JoinRoom(ctx, view.Room.Code, "carol")
		assert.ErrorIs(t, err, service.ErrGameInProgress)
	})
}

func TestStartGame(t *testing.T) {
	ctx := context.Background()
	now := t0
	svc, _, _ := newRoomFixture(&now, "B")

	view, err := svc.CreateRoom(ctx, "alice", 2, 60)
	require.NoError(t, err)

	_, err = svc.StartGame(ctx, view.Room.ID, "alice")
	assert.ErrorIs(t, err, engine.ErrNotEnoughPlayers)

	_, _, err = svc.JoinRoom(ctx, view.Room.Code, "bob")
	require.NoError(t, err)

	_, err = svc.StartGame(ctx, view.Room.ID, "bob")
	assert.ErrorIs(t, err, service.ErrNotHost)

	_, err = svc.StartGame(ctx, view.Room.ID, "mallory")
	assert.ErrorIs(t, err, service.ErrPlayerNotFound)

	started, err := svc.StartGame(ctx, view.Room.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlaying, started.Room.Status)
	assert.Equal(t, 1, started.Room.CurrentRound)
	assert.Equal(t, "B", started.Room.CurrentLetter)
	assert.Equal(t, t0, *started.Room.RoundStartedAt)

	_, err = svc.StartGame(ctx, view.Room.ID, "alice")
	assert.ErrorIs(t, err, service.ErrGameInProgress)

	_, err = svc.GetRoom(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, service.ErrRoomNotFound)
}

func TestSubmitAnswers(t *testing.T) {
	ctx := context.Background()
	now := t0
	svc, _, _ := newRoomFixture(&now, "B")

	view, err := svc.CreateRoom(ctx, "alice", 2, 60)
	require.NoError(t, err)
	_, _, err = svc.JoinRoom(ctx, view.Room.Code, "bob")
	require.NoError(t, err)

	_, err = svc.SubmitAnswers(ctx, view.Room.ID, "alice", 1, fullAnswers("B"))
	assert.ErrorIs(t, err, service.ErrNotPlaying)

	_, err = svc.StartGame(ctx, view.Room.ID, "alice")
	require.NoError(t, err)

	rows, err := svc.SubmitAnswers(ctx, view.Room.ID, "alice", 1, map[string]string{
		"Name":  "banana",
		"Place": "Apple",
	})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.True(t, rows[0].Valid)
	assert.False(t, rows[1].Valid)
	assert.Equal(t, "", rows[2].Text)
	assert.False(t, rows[2].Valid)

	_, err = svc.SubmitAnswers(ctx, view.Room.ID, "alice", 2, fullAnswers("B"))
	assert.ErrorIs(t, err, service.ErrWrongRound)

	_, err = svc.SubmitAnswers(ctx, view.Room.ID, "alice", 1, map[string]string{"Color": "Blue"})
	assert.ErrorIs(t, err, service.ErrUnknownCategory)

	_, err = svc.SubmitAnswers(ctx, view.Room.ID, "zed", 1, fullAnswers("B"))
	assert.ErrorIs(t, err, service.ErrPlayerNotFound)

	// resubmission overwrites
	_, err = svc.SubmitAnswers(ctx, view.Room.ID, "alice", 1, fullAnswers("B"))
	require.NoError(t, err)
	res, err := svc.RoundResults(ctx, view.Room.ID, 1)
	require.NoError(t, err)
	assert.Len(t, res.Answers, 4)
	assert.Equal(t, 40, res.Standings[0].Score)
	assert.False(t, res.Ready)
}

func TestAdvanceRound(t *testing.T) {
	ctx := context.Background()
	now := t0
	svc, _, arch := newRoomFixture(&now, "B", "K")

	view, err := svc.CreateRoom(ctx, "alice", 2, 60)
	require.NoError(t, err)
	id := view.Room.ID
	_, _, err = svc.JoinRoom(ctx, view.Room.Code, "bob")
	require.NoError(t, err)
	_, err = svc.StartGame(ctx, id, "alice")
	require.NoError(t, err)

	_, err = svc.SubmitAnswers(ctx, id, "alice", 1, fullAnswers("B"))
	require.NoError(t, err)

	_, err = svc.AdvanceRound(ctx, id, "alice")
	assert.ErrorIs(t, err, service.ErrRoundNotReady)

	_, err = svc.AdvanceRound(ctx, id, "bob")
	assert.ErrorIs(t, err, service.ErrNotHost)

	// the timer running out makes the round ready even with missing answers
	now = t0.Add(61 * time.Second)
	next, err := svc.AdvanceRound(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, next.Room.CurrentRound)
	assert.Equal(t, "K", next.Room.CurrentLetter)
	assert.Equal(t, now, *next.Room.RoundStartedAt)
	assert.Equal(t, 60, next.Remaining)

	now = now.Add(61 * time.Second)
	done, err := svc.AdvanceRound(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, done.Room.Status)
	assert.Equal(t, 2, done.Room.CurrentRound)
	arch.AssertCalled(t, "Save", mock.Anything, mock.MatchedBy(func(s comm.GameSummary) bool {
		return s.GameID == id && s.Mode == comm.ScopeRoom && len(s.Players) == 2
	}))

	_, err = svc.AdvanceRound(ctx, id, "alice")
	assert.ErrorIs(t, err, engine.ErrFinished)
}

func TestAdvanceRoundConcurrent(t *testing.T) {
	ctx := context.Background()
	now := t0
	svc, mem, _ := newRoomFixture(&now, "B", "K", "M")

	view, err := svc.CreateRoom(ctx, "alice", 3, 60)
	require.NoError(t, err)
	id := view.Room.ID
	_, _, err = svc.JoinRoom(ctx, view.Room.Code, "bob")
	require.NoError(t, err)
	_, err = svc.StartGame(ctx, id, "alice")
	require.NoError(t, err)
	now = t0.Add(2 * time.Minute)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.AdvanceRound(ctx, id, "alice")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		// losers either lost the update or read the already advanced round
		assert.True(t, errors.Is(err, service.ErrStaleState) || errors.Is(err, service.ErrRoundNotReady), err)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 2, mem.rooms[id].CurrentRound)
}

func TestFinishGame(t *testing.T) {
	ctx := context.Background()
	now := t0
	svc, _, _ := newRoomFixture(&now, "B", "K")

	view, err := svc.CreateRoom(ctx, "alice", 2, 60)
	require.NoError(t, err)
	id := view.Room.ID
	_, _, err = svc.JoinRoom(ctx, view.Room.Code, "bob")
	require.NoError(t, err)
	_, err = svc.StartGame(ctx, id, "alice")
	require.NoError(t, err)

	_, err = svc.FinishGame(ctx, id, "alice")
	assert.ErrorIs(t, err, engine.ErrRoundsRemaining)
}

func TestFinishGameWaitsForLastRound(t *testing.T) {
	ctx := context.Background()
	now := t0
	svc, mem, arch := newRoomFixture(&now, "B")

	view, err := svc.CreateRoom(ctx, "alice", 1, 60)
	require.NoError(t, err)
	id := view.Room.ID
	_, _, err = svc.JoinRoom(ctx, view.Room.Code, "bob")
	require.NoError(t, err)
	_, err = svc.StartGame(ctx, id, "alice")
	require.NoError(t, err)

	now = t0.Add(time.Second)
	_, err = svc.FinishGame(ctx, id, "alice")
	assert.ErrorIs(t, err, service.ErrRoundNotReady)
	assert.Equal(t, models.StatusPlaying, mem.rooms[id].Status)

	// bob can still answer the open round
	_, err = svc.SubmitAnswers(ctx, id, "bob", 1, fullAnswers("B"))
	require.NoError(t, err)

	now = t0.Add(61 * time.Second)
	done, err := svc.FinishGame(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, done.Room.Status)

	again, err := svc.FinishGame(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, again.Room.Status)
	arch.AssertNumberOfCalls(t, "Save", 1)
}

func TestFinishGameAfterAdvance(t *testing.T) {
	ctx := context.Background()
	now := t0
	svc, _, _ := newRoomFixture(&now, "B")

	view, err := svc.CreateRoom(ctx, "alice", 1, 60)
	require.NoError(t, err)
	id := view.Room.ID
	_, _, err = svc.JoinRoom(ctx, view.Room.Code, "bob")
	require.NoError(t, err)
	_, err = svc.StartGame(ctx, id, "alice")
	require.NoError(t, err)

	now = t0.Add(61 * time.Second)
	_, err = svc.AdvanceRound(ctx, id, "alice")
	require.NoError(t, err)

	done, err := svc.FinishGame(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, done.Room.Status)
}

// Room created with two rounds, two players, host starts; both submit all
// four answers; eight ledger rows make round one advanceable; host advances
// to a new letter; after round two the host finishes.
func TestTwoRoundRoomScenario(t *testing.T) {
	ctx := context.Background()
	now := t0
	svc, _, _ := newRoomFixture(&now, "B", "T")

	view, err := svc.CreateRoom(ctx, "alice", 2, 60)
	require.NoError(t, err)
	id := view.Room.ID
	_, _, err = svc.JoinRoom(ctx, view.Room.Code, "bob")
	require.NoError(t, err)

	started, err := svc.StartGame(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, "B", started.Room.CurrentLetter)
	assert.Equal(t, t0, *started.Room.RoundStartedAt)

	now = t0.Add(20 * time.Second)
	_, err = svc.SubmitAnswers(ctx, id, "alice", 1, fullAnswers("B"))
	require.NoError(t, err)
	_, err = svc.SubmitAnswers(ctx, id, "bob", 1, map[string]string{
		"Name": "Ben", "Place": "Berlin", "Animal": "Cat", "Thing": "Ball",
	})
	require.NoError(t, err)

	r1, err := svc.RoundResults(ctx, id, 0)
	require.NoError(t, err)
	assert.True(t, r1.Ready)
	assert.Len(t, r1.Answers, 8)

	second, err := svc.AdvanceRound(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Room.CurrentRound)
	assert.Equal(t, "T", second.Room.CurrentLetter)
	assert.Equal(t, now, *second.Room.RoundStartedAt)

	now = now.Add(30 * time.Second)
	_, err = svc.SubmitAnswers(ctx, id, "alice", 2, fullAnswers("T"))
	require.NoError(t, err)
	_, err = svc.SubmitAnswers(ctx, id, "bob", 2, fullAnswers("T"))
	require.NoError(t, err)

	finished, err := svc.FinishGame(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, finished.Room.Status)

	final, err := svc.FinalResults(ctx, id)
	require.NoError(t, err)
	require.Len(t, final.Leaderboard, 2)
	assert.Equal(t, "alice", final.Leaderboard[0].Name)
	assert.Equal(t, 80, final.Leaderboard[0].Score)
	assert.Equal(t, "bob", final.Leaderboard[1].Name)
	assert.Equal(t, 70, final.Leaderboard[1].Score)

	// validity of round one kept its own letter
	r1again, err := svc.RoundResults(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, 40, r1again.Standings[0].Score)
}
