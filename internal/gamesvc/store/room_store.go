package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/npat-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const roomColumns = `id, room_code, host_name, status, current_round, total_rounds, current_letter,
	categories, timer_duration, round_started_at, created_at, updated_at`

type RoomStore struct {
	db *pgxpool.Pool
}

func NewRoomStore(db *pgxpool.Pool) *RoomStore {
	return &RoomStore{db: db}
}

func scanRoom(row pgx.Row) (*models.Room, error) {
	r := &models.Room{}
	err := row.Scan(
		&r.ID,
		&r.Code,
		&r.HostName,
		&r.Status,
		&r.CurrentRound,
		&r.TotalRounds,
		&r.CurrentLetter,
		&r.Categories,
		&r.TimerDuration,
		&r.RoundStartedAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CreateRoom inserts the room and its host roster entry in one transaction.
func (s *RoomStore) CreateRoom(ctx context.Context, room models.Room) (*models.Room, *models.RoomPlayer, error) {
	var created *models.Room
	host := &models.RoomPlayer{}

	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		created, err = scanRoom(tx.QueryRow(ctx, `
			INSERT INTO game_rooms (room_code, host_name, status, total_rounds, categories, timer_duration)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+roomColumns,
			room.Code, room.HostName, models.StatusWaiting, room.TotalRounds, room.Categories, room.TimerDuration,
		))
		if err != nil {
			if code, constraint := pgCode(err); code == uniqueViolation && constraint == "unique_room_code" {
				return ErrCodeTaken
			}
			return fmt.Errorf("insert room: %w", err)
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO game_players (room_id, player_name, is_host)
			VALUES ($1, $2, true)
			RETURNING id, room_id, player_name, is_host, joined_at
		`, created.ID, room.HostName).Scan(&host.ID, &host.RoomID, &host.Name, &host.IsHost, &host.JoinedAt)
		if err != nil {
			return fmt.Errorf("insert host player: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return created, host, nil
}

func (s *RoomStore) GetRoomByID(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := scanRoom(s.db.QueryRow(ctx, `SELECT `+roomColumns+` FROM game_rooms WHERE id = $1`, roomID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get room by ID: %w", err)
	}
	return room, nil
}

func (s *RoomStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	room, err := scanRoom(s.db.QueryRow(ctx, `SELECT `+roomColumns+` FROM game_rooms WHERE room_code = $1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get room by code: %w", err)
	}
	return room, nil
}

// UpdateRoundState persists a transition computed from prev.
func (s *RoomStore) UpdateRoundState(ctx context.Context, roomID string, prev, next models.RoundState) error {
	return updateRoundState(ctx, s.db, "game_rooms", roomID, prev, next)
}
