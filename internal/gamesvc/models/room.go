package models

import "time"

type Room struct {
	ID       string `json:"id"`
	Code     string `json:"room_code"` // 6 chars, shareable
	HostName string `json:"host_name"`
	RoundState
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
