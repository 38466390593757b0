package comm

import (
	"encoding/json"
	"time"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "create-room", "submit-answers"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

type ErrorRes struct {
	Code    string `json:"code"` // not_found, conflict, invalid_request, server_error
	Message string `json:"message"`
	Request string `json:"request"` // type of the failed request
}

type Res struct {
	Status bool `json:"status"`
}

type ServiceHeartbeat struct {
	ID        string    `json:"id"` // service id
	Timestamp time.Time `json:"timestamp"`
}

// change operations
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// change scopes
const (
	ScopeRoom  = "room"
	ScopeMatch = "match"
	ScopeQueue = "queue"
)

// ChangeEvent says a row changed. It carries no row data; consumers re-fetch.
type ChangeEvent struct {
	Table    string    `json:"table"`
	Op       string    `json:"op"`
	RecordID string    `json:"record_id"`
	Scope    string    `json:"scope"`
	ScopeID  string    `json:"scope_id"` // room id, match id or stake
	At       time.Time `json:"at"`
}

// Subscription binds a socket to the change feed of one room, match or queue.
type Subscription struct {
	Scope   string `json:"scope"`
	ScopeID string `json:"scope_id"`
}

// GameSummary is what gets archived once a room or match finishes.
type GameSummary struct {
	Mode       string         `json:"mode" bson:"mode"` // room or match
	GameID     string         `json:"game_id" bson:"game_id"`
	Players    []PlayerResult `json:"players" bson:"players"`
	Winner     *string        `json:"winner" bson:"winner"`
	Rounds     int            `json:"rounds" bson:"rounds"`
	Stake      int            `json:"stake,omitempty" bson:"stake,omitempty"`
	FinishedAt time.Time      `json:"finished_at" bson:"finished_at"`
	ExpiresAt  time.Time      `json:"-" bson:"expires_at"`
}

type PlayerResult struct {
	Name    string `json:"name" bson:"name"`
	Correct int    `json:"correct" bson:"correct"`
	Score   int    `json:"score" bson:"score"`
}
