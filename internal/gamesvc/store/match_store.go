package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/npat-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const matchColumns = `id, player1_name, player2_name, stake_amount, status, current_round, total_rounds,
	current_letter, categories, timer_duration, round_started_at, winner_name, created_at, updated_at`

type MatchStore struct {
	db *pgxpool.Pool
}

func NewMatchStore(db *pgxpool.Pool) *MatchStore {
	return &MatchStore{db: db}
}

func scanMatch(row pgx.Row) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(
		&m.ID,
		&m.Player1Name,
		&m.Player2Name,
		&m.StakeAmount,
		&m.Status,
		&m.CurrentRound,
		&m.TotalRounds,
		&m.CurrentLetter,
		&m.Categories,
		&m.TimerDuration,
		&m.RoundStartedAt,
		&m.WinnerName,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MatchStore) GetMatchByID(ctx context.Context, matchID string) (*models.Match, error) {
	m, err := scanMatch(s.db.QueryRow(ctx, `SELECT `+matchColumns+` FROM online_matches WHERE id = $1`, matchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get match by ID: %w", err)
	}
	return m, nil
}

// GetMatchesForPlayer lists a player's matches, newest first.
func (s *MatchStore) GetMatchesForPlayer(ctx context.Context, name string, limit int) ([]models.Match, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+matchColumns+`
		FROM online_matches
		WHERE player1_name = $1 OR player2_name = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return matches, nil
}

func (s *MatchStore) UpdateRoundState(ctx context.Context, matchID string, prev, next models.RoundState) error {
	return updateRoundState(ctx, s.db, "online_matches", matchID, prev, next)
}

// SettleMatch finishes the match and pays out in one transaction. The guarded
// state update makes sure only one caller ever settles a given match.
func (s *MatchStore) SettleMatch(ctx context.Context, m *models.Match, prev, next models.RoundState, winner *string) error {
	return withTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := updateRoundState(ctx, tx, "online_matches", m.ID, prev, next); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE online_matches SET winner_name = $2, updated_at = now() WHERE id = $1
		`, m.ID, winner); err != nil {
			return fmt.Errorf("set winner: %w", err)
		}

		stake := int64(m.StakeAmount)
		tref := "match:" + m.ID

		if winner == nil {
			// tie: both stakes go back
			for _, p := range m.Players() {
				if err := credit(ctx, tx, p, stake, models.TTypeRefund, tref); err != nil {
					return err
				}
			}
			return nil
		}

		for _, p := range m.Players() {
			won := p == *winner
			if won {
				if err := credit(ctx, tx, p, stake*2, models.TTypePrize, tref); err != nil {
					return err
				}
			}
			if err := recordResult(ctx, tx, p, won); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListExpiredMatches returns playing matches whose round timer ran out more
// than grace seconds ago, plus matches left in round_complete for more than
// idle seconds, oldest first.
func (s *MatchStore) ListExpiredMatches(ctx context.Context, graceSeconds, idleSeconds, limit int) ([]models.Match, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+matchColumns+`
		FROM online_matches
		WHERE (status = 'playing'
		       AND round_started_at + make_interval(secs => timer_duration + $1) < now())
		   OR (status = 'round_complete'
		       AND updated_at + make_interval(secs => $2) < now())
		ORDER BY updated_at
		LIMIT $3
	`, graceSeconds, idleSeconds, limit)
	if err != nil {
		return nil, fmt.Errorf("select expired matches: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match row: %w", err)
		}
		matches = append(matches, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return matches, nil
}
