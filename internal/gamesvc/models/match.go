package models

import "time"

type Match struct {
	ID          string  `json:"id"`
	Player1Name string  `json:"player1_name"`
	Player2Name string  `json:"player2_name"`
	StakeAmount int     `json:"stake_amount"`
	WinnerName  *string `json:"winner_name"`
	RoundState
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *Match) Players() []string {
	return []string{m.Player1Name, m.Player2Name}
}

func (m *Match) HasPlayer(name string) bool {
	return name == m.Player1Name || name == m.Player2Name
}
