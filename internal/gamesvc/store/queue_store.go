package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/npat-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queueColumns = `id, player_name, stake_amount, status, match_id, matched_with, created_at`

// advisory lock class for per-stake pairing
const pairingLockClass = 7741

type QueueStore struct {
	db *pgxpool.Pool
}

func NewQueueStore(db *pgxpool.Pool) *QueueStore {
	return &QueueStore{db: db}
}

func scanQueueEntry(row pgx.Row) (*models.QueueEntry, error) {
	e := &models.QueueEntry{}
	if err := row.Scan(&e.ID, &e.PlayerName, &e.StakeAmount, &e.Status, &e.MatchID, &e.MatchedWith, &e.CreatedAt); err != nil {
		return nil, err
	}
	return e, nil
}

// Enqueue purges any waiting entry the player already has, at any stake,
// and inserts a fresh one.
func (s *QueueStore) Enqueue(ctx context.Context, name string, stake int) (*models.QueueEntry, error) {
	var entry *models.QueueEntry
	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			DELETE FROM matchmaking_queue WHERE player_name = $1 AND status = 'waiting'
		`, name); err != nil {
			return fmt.Errorf("purge waiting entries: %w", err)
		}

		var err error
		entry, err = scanQueueEntry(tx.QueryRow(ctx, `
			INSERT INTO matchmaking_queue (player_name, stake_amount, status)
			VALUES ($1, $2, 'waiting')
			RETURNING `+queueColumns,
			name, stake,
		))
		if err != nil {
			if code, _ := pgCode(err); code == uniqueViolation {
				return ErrAlreadyQueued
			}
			return fmt.Errorf("insert queue entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Pair matches a waiting entry with the oldest other waiting player at the
// same stake. Match creation, both queue updates and both stake debits
// commit together. Pairing is serialized per stake with an advisory lock.
// It returns nil, nil when nobody eligible is waiting or the entry was
// already paired by someone else.
func (s *QueueStore) Pair(ctx context.Context, entryID string, state models.RoundState) (*models.Match, error) {
	var match *models.Match
	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		self, err := scanQueueEntry(tx.QueryRow(ctx, `
			SELECT `+queueColumns+` FROM matchmaking_queue WHERE id = $1
		`, entryID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("get own entry: %w", err)
		}

		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, pairingLockClass, self.StakeAmount); err != nil {
			return fmt.Errorf("pairing lock: %w", err)
		}

		self, err = scanQueueEntry(tx.QueryRow(ctx, `
			SELECT `+queueColumns+` FROM matchmaking_queue WHERE id = $1 FOR UPDATE
		`, entryID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock own entry: %w", err)
		}
		if self.Status != models.QueueWaiting {
			return nil
		}

		selfWallet, err := ensureWallet(ctx, tx, self.PlayerName)
		if err != nil {
			return err
		}
		if selfWallet.Coins < int64(self.StakeAmount) {
			return ErrInsufficientCoins
		}

		opponent, err := s.lockOpponent(ctx, tx, self)
		if err != nil || opponent == nil {
			return err
		}

		match, err = scanMatch(tx.QueryRow(ctx, `
			INSERT INTO online_matches (
				player1_name, player2_name, stake_amount, status, current_round, total_rounds,
				current_letter, categories, timer_duration, round_started_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING `+matchColumns,
			opponent.PlayerName, self.PlayerName, self.StakeAmount, state.Status, state.CurrentRound,
			state.TotalRounds, state.CurrentLetter, state.Categories, state.TimerDuration, state.RoundStartedAt,
		))
		if err != nil {
			return fmt.Errorf("insert match: %w", err)
		}

		for _, pair := range [][2]string{{self.ID, opponent.ID}, {opponent.ID, self.ID}} {
			if _, err := tx.Exec(ctx, `
				UPDATE matchmaking_queue
				SET status = 'matched', match_id = $2, matched_with = $3
				WHERE id = $1
			`, pair[0], match.ID, pair[1]); err != nil {
				return fmt.Errorf("mark queue entry matched: %w", err)
			}
		}

		tref := "match:" + match.ID
		for _, p := range match.Players() {
			if err := debit(ctx, tx, p, int64(match.StakeAmount), models.TTypeStake, tref); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

// lockOpponent picks the oldest eligible waiting entry. Entries whose owner
// can no longer cover the stake are dropped from the queue on the way.
func (s *QueueStore) lockOpponent(ctx context.Context, tx pgx.Tx, self *models.QueueEntry) (*models.QueueEntry, error) {
	for {
		opponent, err := scanQueueEntry(tx.QueryRow(ctx, `
			SELECT `+queueColumns+`
			FROM matchmaking_queue
			WHERE status = 'waiting'
			  AND stake_amount = $1
			  AND player_name <> $2
			ORDER BY created_at, id
			LIMIT 1
			FOR UPDATE
		`, self.StakeAmount, self.PlayerName))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("find opponent: %w", err)
		}

		w, err := ensureWallet(ctx, tx, opponent.PlayerName)
		if err != nil {
			return nil, err
		}
		if w.Coins >= int64(self.StakeAmount) {
			return opponent, nil
		}

		if _, err := tx.Exec(ctx, `DELETE FROM matchmaking_queue WHERE id = $1`, opponent.ID); err != nil {
			return nil, fmt.Errorf("drop broke opponent: %w", err)
		}
	}
}

func (s *QueueStore) GetEntry(ctx context.Context, entryID string) (*models.QueueEntry, error) {
	e, err := scanQueueEntry(s.db.QueryRow(ctx, `SELECT `+queueColumns+` FROM matchmaking_queue WHERE id = $1`, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get queue entry: %w", err)
	}
	return e, nil
}

func (s *QueueStore) CountWaiting(ctx context.Context, stake int) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM matchmaking_queue WHERE status = 'waiting' AND stake_amount = $1
	`, stake).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count waiting: %w", err)
	}
	return n, nil
}

// Cancel removes a still-waiting entry. A matched entry stays; the match exists.
func (s *QueueStore) Cancel(ctx context.Context, entryID string) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM matchmaking_queue WHERE id = $1 AND status = 'waiting'
	`, entryID)
	if err != nil {
		return fmt.Errorf("cancel queue entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
