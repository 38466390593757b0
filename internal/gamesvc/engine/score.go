package engine

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/avvvet/npat-services/internal/gamesvc/models"
)

const PointsPerAnswer = 10

// IsValid checks the first-letter rule, ignoring case and leading spaces.
func IsValid(answer, letter string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" || letter == "" {
		return false
	}
	a, _ := utf8.DecodeRuneInString(answer)
	l, _ := utf8.DecodeRuneInString(letter)
	return unicode.ToUpper(a) == unicode.ToUpper(l)
}

func RoundScore(valid int) int {
	return PointsPerAnswer * valid
}

type Standing struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
	Score    int    `json:"score"`
	Position int    `json:"position"`
}

// Tally sums answers per player. players fixes the output order and names;
// answers from unknown players are ignored.
func Tally(players []models.RoomPlayer, answers []models.Answer) []Standing {
	idx := make(map[string]int, len(players))
	standings := make([]Standing, len(players))
	for i, p := range players {
		idx[p.ID] = i
		standings[i] = Standing{PlayerID: p.ID, Name: p.Name}
	}

	for _, a := range answers {
		i, ok := idx[a.PlayerID]
		if !ok {
			continue
		}
		standings[i].Total++
		if a.Valid {
			standings[i].Correct++
		}
	}

	for i := range standings {
		standings[i].Score = RoundScore(standings[i].Correct)
	}
	return standings
}

// Leaderboard sorts by score, highest first, and assigns positions.
// Equal scores keep their input order and share a position.
func Leaderboard(standings []Standing) []Standing {
	out := make([]Standing, len(standings))
	copy(out, standings)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	for i := range out {
		if i > 0 && out[i].Score == out[i-1].Score {
			out[i].Position = out[i-1].Position
			continue
		}
		out[i].Position = i + 1
	}
	return out
}

// CountValid counts valid answers per player id.
func CountValid(answers []models.Answer) map[string]int {
	counts := make(map[string]int)
	for _, a := range answers {
		if a.Valid {
			counts[a.PlayerID]++
		}
	}
	return counts
}

// Winner returns the player with strictly more valid answers, nil on a tie.
func Winner(p1 string, c1 int, p2 string, c2 int) *string {
	switch {
	case c1 > c2:
		return &p1
	case c2 > c1:
		return &p2
	default:
		return nil
	}
}
