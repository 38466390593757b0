package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/npat-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PlayerStore struct {
	db *pgxpool.Pool
}

func NewPlayerStore(db *pgxpool.Pool) *PlayerStore {
	return &PlayerStore{db: db}
}

// GetPlayersByRoomID returns the roster in join order.
func (s *PlayerStore) GetPlayersByRoomID(ctx context.Context, roomID string) ([]models.RoomPlayer, error) {
	query := `
		SELECT id, room_id, player_name, is_host, joined_at
		FROM game_players
		WHERE room_id = $1
		ORDER BY joined_at, id
	`

	rows, err := s.db.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	var players []models.RoomPlayer
	for rows.Next() {
		var p models.RoomPlayer
		if err := rows.Scan(&p.ID, &p.RoomID, &p.Name, &p.IsHost, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return players, nil
}

// It fails with:
// - ErrNotJoinable when the room is missing or no longer waiting.
// - ErrNameTaken when the name is already on the roster (unique_room_player).
func (s *PlayerStore) JoinRoom(ctx context.Context, roomID, name string) (*models.RoomPlayer, error) {
	// CTE locks the room row and enforces status='waiting'
	const query = `
WITH locked_room AS (
  SELECT id
  FROM game_rooms
  WHERE id = $1
    AND status = 'waiting'
  FOR UPDATE
)
INSERT INTO game_players (room_id, player_name, is_host)
SELECT lr.id, $2, false
FROM locked_room lr
RETURNING id, room_id, player_name, is_host, joined_at;
`
	p := &models.RoomPlayer{}
	err := s.db.QueryRow(ctx, query, roomID, name).Scan(&p.ID, &p.RoomID, &p.Name, &p.IsHost, &p.JoinedAt)
	if err != nil {
		// zero rows means the room isn't waiting (or doesn't exist)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotJoinable
		}
		if code, constraint := pgCode(err); code == uniqueViolation && constraint == "unique_room_player" {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("failed to join room: %w", err)
	}

	return p, nil
}
