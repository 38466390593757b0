package models

import "time"

const (
	QueueWaiting = "waiting"
	QueueMatched = "matched"
)

type QueueEntry struct {
	ID          string    `json:"id"`
	PlayerName  string    `json:"player_name"`
	StakeAmount int       `json:"stake_amount"`
	Status      string    `json:"status"`       // 'waiting', 'matched'
	MatchID     *string   `json:"match_id"`     // set once paired
	MatchedWith *string   `json:"matched_with"` // opponent queue entry
	CreatedAt   time.Time `json:"created_at"`
}
