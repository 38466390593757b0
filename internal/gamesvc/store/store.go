package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/npat-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrStaleState        = errors.New("record changed since it was read")
	ErrNotJoinable       = errors.New("room is not accepting players")
	ErrNameTaken         = errors.New("player name already taken")
	ErrCodeTaken         = errors.New("room code already in use")
	ErrInsufficientCoins = errors.New("insufficient coins")
	ErrAlreadyQueued     = errors.New("player already waiting in queue")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func pgCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

// updateRoundState writes next only if the row still holds prev's status and
// round, so two writers racing on the same transition produce one update.
func updateRoundState(ctx context.Context, q querier, table, id string, prev, next models.RoundState) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, current_round = $2, current_letter = $3, round_started_at = $4, updated_at = now()
		WHERE id = $5 AND status = $6 AND current_round = $7
	`, table)

	tag, err := q.Exec(ctx, query,
		next.Status, next.CurrentRound, next.CurrentLetter, next.RoundStartedAt,
		id, prev.Status, prev.CurrentRound,
	)
	if err != nil {
		return fmt.Errorf("update %s round state: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleState
	}
	return nil
}
