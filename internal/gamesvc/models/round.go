package models

import "time"

type Status string

const (
	StatusWaiting       Status = "waiting"
	StatusPlaying       Status = "playing"
	StatusRoundComplete Status = "round_complete"
	StatusFinished      Status = "finished"
)

// Categories is the fixed, ordered category list every game plays with.
var Categories = []string{"Name", "Place", "Animal", "Thing"}

// RoundState is the lifecycle part shared by rooms and online matches.
type RoundState struct {
	Status         Status     `json:"status"`
	CurrentRound   int        `json:"current_round"`
	TotalRounds    int        `json:"total_rounds"`
	CurrentLetter  string     `json:"current_letter"`
	Categories     []string   `json:"categories"`
	TimerDuration  int        `json:"timer_duration"` // seconds per round
	RoundStartedAt *time.Time `json:"round_started_at"`
}

func NewRoundState(totalRounds, timerDuration int) RoundState {
	categories := make([]string, len(Categories))
	copy(categories, Categories)

	return RoundState{
		Status:        StatusWaiting,
		TotalRounds:   totalRounds,
		Categories:    categories,
		TimerDuration: timerDuration,
	}
}

func (s RoundState) LastRound() bool {
	return s.CurrentRound >= s.TotalRounds
}

func (s RoundState) HasCategory(category string) bool {
	for _, c := range s.Categories {
		if c == category {
			return true
		}
	}
	return false
}
