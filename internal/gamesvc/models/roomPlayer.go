package models

import "time"

type RoomPlayer struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"room_id"`
	Name     string    `json:"player_name"` // unique within a room
	IsHost   bool      `json:"is_host"`
	JoinedAt time.Time `json:"joined_at"`
}
