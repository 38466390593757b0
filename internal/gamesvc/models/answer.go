package models

import "time"

// Answer is one Answer Ledger row. In room mode PlayerID is the roster id,
// in online mode it is the player name.
type Answer struct {
	ID        string    `json:"id"`
	GameID    string    `json:"game_id"`
	PlayerID  string    `json:"player_id"`
	Round     int       `json:"round_number"`
	Category  string    `json:"category"`
	Text      string    `json:"answer"`
	Valid     bool      `json:"is_valid"`
	CreatedAt time.Time `json:"created_at"`
}
