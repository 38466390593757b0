package archive

import (
	"testing"
	"time"

	"github.com/avvvet/npat-services/internal/comm"
	"github.com/stretchr/testify/assert"
)

func TestStamp(t *testing.T) {
	finished := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	s := Stamp(comm.GameSummary{Mode: comm.ScopeMatch, GameID: "m1", FinishedAt: finished}, 30*24*time.Hour)
	assert.Equal(t, finished.Add(720*time.Hour), s.ExpiresAt)

	s = Stamp(comm.GameSummary{}, time.Hour)
	assert.False(t, s.FinishedAt.IsZero())
	assert.Equal(t, time.Hour, s.ExpiresAt.Sub(s.FinishedAt))
}
