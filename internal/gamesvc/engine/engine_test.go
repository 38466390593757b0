package engine_test

import (
	"testing"
	"time"

	"github.com/avvvet/npat-services/internal/gamesvc/engine"
	"github.com/avvvet/npat-services/internal/gamesvc/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// fixedEngine returns an engine whose clock is controlled by the test and
// whose letters come from the given sequence.
func fixedEngine(now *time.Time, letters ...string) *engine.Engine {
	i := 0
	return &engine.Engine{
		Now: func() time.Time { return *now },
		PickLetter: func() string {
			l := letters[i%len(letters)]
			i++
			return l
		},
	}
}

func TestStart(t *testing.T) {
	now := t0
	e := fixedEngine(&now, "B")

	t.Run("needs two players", func(t *testing.T) {
		s := models.NewRoundState(3, 60)
		err := e.Start(&s, 1)
		assert.ErrorIs(t, err, engine.ErrNotEnoughPlayers)
		assert.Equal(t, models.StatusWaiting, s.Status)
		assert.Zero(t, s.CurrentRound)
	})

	t.Run("opens round one", func(t *testing.T) {
		s := models.NewRoundState(3, 60)
		require.NoError(t, e.Start(&s, 2))
		assert.Equal(t, models.StatusPlaying, s.Status)
		assert.Equal(t, 1, s.CurrentRound)
		assert.Equal(t, "B", s.CurrentLetter)
		require.NotNil(t, s.RoundStartedAt)
		assert.Equal(t, t0, *s.RoundStartedAt)
	})

	t.Run("only from waiting", func(t *testing.T) {
		s := models.NewRoundState(3, 60)
		require.NoError(t, e.Start(&s, 2))
		assert.ErrorIs(t, e.Start(&s, 2), engine.ErrIllegalTransition)
	})
}

func TestRoundLifecycleRoomMode(t *testing.T) {
	now := t0
	e := fixedEngine(&now, "B", "K")

	s := models.NewRoundState(2, 60)
	require.NoError(t, e.Start(&s, 2))

	now = t0.Add(20 * time.Second)
	require.NoError(t, e.Advance(&s))
	assert.Equal(t, models.StatusPlaying, s.Status)
	assert.Equal(t, 2, s.CurrentRound)
	assert.Equal(t, "K", s.CurrentLetter)
	assert.Equal(t, now, *s.RoundStartedAt)

	require.NoError(t, e.Finish(&s))
	assert.Equal(t, models.StatusFinished, s.Status)
	assert.Equal(t, 2, s.CurrentRound)

	assert.ErrorIs(t, e.Advance(&s), engine.ErrFinished)
	assert.ErrorIs(t, e.Finish(&s), engine.ErrFinished)
	assert.ErrorIs(t, e.CompleteRound(&s), engine.ErrFinished)
	assert.Equal(t, "K", s.CurrentLetter)
}

func TestRoundLifecycleOnlineMode(t *testing.T) {
	now := t0
	e := fixedEngine(&now, "M", "T", "P")

	s := models.NewRoundState(2, 60)
	require.NoError(t, e.Begin(&s))
	require.NoError(t, e.CompleteRound(&s))
	assert.Equal(t, models.StatusRoundComplete, s.Status)
	assert.ErrorIs(t, e.CompleteRound(&s), engine.ErrIllegalTransition)

	require.NoError(t, e.Advance(&s))
	assert.Equal(t, models.StatusPlaying, s.Status)
	assert.Equal(t, 2, s.CurrentRound)

	require.NoError(t, e.CompleteRound(&s))
	require.NoError(t, e.Advance(&s))
	assert.Equal(t, models.StatusFinished, s.Status)
	assert.Equal(t, 2, s.CurrentRound)
}

func TestRoundNeverPassesTotal(t *testing.T) {
	now := t0
	e := fixedEngine(&now, "A")

	s := models.NewRoundState(4, 30)
	require.NoError(t, e.Start(&s, 3))

	last := s.CurrentRound
	for i := 0; i < 10; i++ {
		err := e.Advance(&s)
		if s.Status == models.StatusPlaying {
			assert.LessOrEqual(t, s.CurrentRound, s.TotalRounds)
		}
		assert.GreaterOrEqual(t, s.CurrentRound, last)
		last = s.CurrentRound
		if err != nil {
			assert.ErrorIs(t, err, engine.ErrFinished)
		}
	}
	assert.Equal(t, models.StatusFinished, s.Status)
	assert.Equal(t, 4, s.CurrentRound)
}

func TestFinishBeforeLastRound(t *testing.T) {
	now := t0
	e := fixedEngine(&now, "A")

	s := models.NewRoundState(3, 60)
	require.NoError(t, e.Start(&s, 2))
	assert.ErrorIs(t, e.Finish(&s), engine.ErrRoundsRemaining)
	assert.Equal(t, models.StatusPlaying, s.Status)

	w := models.NewRoundState(1, 60)
	assert.ErrorIs(t, e.Finish(&w), engine.ErrIllegalTransition)
	assert.ErrorIs(t, e.Advance(&w), engine.ErrIllegalTransition)
}

func TestRemaining(t *testing.T) {
	start := t0
	s := models.NewRoundState(1, 60)
	s.Status = models.StatusPlaying
	s.RoundStartedAt = &start

	assert.Equal(t, 60, engine.Remaining(s, t0))
	assert.Equal(t, 60, engine.Remaining(s, t0.Add(999*time.Millisecond)))
	assert.Equal(t, 59, engine.Remaining(s, t0.Add(1*time.Second)))
	assert.Equal(t, 1, engine.Remaining(s, t0.Add(59500*time.Millisecond)))
	assert.Equal(t, 0, engine.Remaining(s, t0.Add(60*time.Second)))
	assert.Equal(t, 0, engine.Remaining(s, t0.Add(61*time.Second)))
	assert.Equal(t, 60, engine.Remaining(s, t0.Add(-5*time.Second)))

	// two observers with the same wall clock agree regardless of when they looked first
	later := t0.Add(42 * time.Second)
	assert.Equal(t, engine.Remaining(s, later), engine.Remaining(s, later))
	assert.Equal(t, 18, engine.Remaining(s, later))
}

func TestRoundReady(t *testing.T) {
	start := t0
	s := models.NewRoundState(2, 60)
	s.Status = models.StatusPlaying
	s.CurrentRound = 1
	s.RoundStartedAt = &start

	assert.False(t, engine.RoundReady(s, 7, 2, t0.Add(10*time.Second)))
	assert.True(t, engine.RoundReady(s, 8, 2, t0.Add(10*time.Second)))
	assert.True(t, engine.RoundReady(s, 3, 2, t0.Add(60*time.Second)))
	assert.False(t, engine.RoundReady(s, 0, 0, t0.Add(59*time.Second)))

	s.Status = models.StatusRoundComplete
	assert.False(t, engine.RoundReady(s, 8, 2, t0.Add(10*time.Second)))
}

func TestRandomLetter(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 2000; i++ {
		l := engine.RandomLetter()
		require.Len(t, l, 1)
		assert.GreaterOrEqual(t, l[0], byte('A'))
		assert.LessOrEqual(t, l[0], byte('Z'))
		seen[l] = true
	}
	assert.Len(t, seen, 26)
}
