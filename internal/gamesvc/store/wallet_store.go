package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/npat-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const walletColumns = `player_name, coins, total_wins, total_losses, created_at, updated_at`

type WalletStore struct {
	db *pgxpool.Pool
}

func NewWalletStore(db *pgxpool.Pool) *WalletStore {
	return &WalletStore{db: db}
}

func scanWallet(row pgx.Row) (*models.Wallet, error) {
	w := &models.Wallet{}
	if err := row.Scan(&w.PlayerName, &w.Coins, &w.TotalWins, &w.TotalLosses, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WalletStore) GetWallet(ctx context.Context, name string) (*models.Wallet, error) {
	w, err := scanWallet(s.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM user_wallets WHERE player_name = $1`, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

// GetOrCreate returns the player's wallet, opening it with the starting
// grant on first use.
func (s *WalletStore) GetOrCreate(ctx context.Context, name string) (*models.Wallet, error) {
	var w *models.Wallet
	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		w, err = ensureWallet(ctx, tx, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// GetLedger returns the newest coin movements first.
func (s *WalletStore) GetLedger(ctx context.Context, name string, limit int) ([]models.LedgerEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, player_name, ttype, dr, cr, tref, created_at
		FROM wallet_ledger
		WHERE player_name = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.PlayerName, &e.TType, &e.Dr, &e.Cr, &e.TRef, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return entries, nil
}

// LedgerBalance sums the ledger; it always equals the wallet's coins.
func (s *WalletStore) LedgerBalance(ctx context.Context, name string) (decimal.Decimal, error) {
	var totalDr, totalCr decimal.Decimal

	err := s.db.QueryRow(ctx, `
        SELECT
            COALESCE(SUM(dr), 0),
            COALESCE(SUM(cr), 0)
        FROM wallet_ledger
        WHERE player_name = $1
    `, name).Scan(&totalDr, &totalCr)
	if err != nil {
		return decimal.Zero, err
	}

	return totalDr.Sub(totalCr), nil
}

func ensureWallet(ctx context.Context, tx pgx.Tx, name string) (*models.Wallet, error) {
	w, err := scanWallet(tx.QueryRow(ctx, `
		INSERT INTO user_wallets (player_name, coins)
		VALUES ($1, $2)
		ON CONFLICT (player_name) DO NOTHING
		RETURNING `+walletColumns,
		name, models.StartingCoins,
	))
	switch {
	case err == nil:
		if err := writeLedger(ctx, tx, name, models.TTypeGrant, int64(models.StartingCoins), 0, "welcome"); err != nil {
			return nil, err
		}
		return w, nil
	case errors.Is(err, pgx.ErrNoRows):
		// already exists
	default:
		return nil, fmt.Errorf("create wallet: %w", err)
	}

	w, err = scanWallet(tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM user_wallets WHERE player_name = $1`, name))
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

// debit takes stake coins from a wallet, refusing to go below zero.
func debit(ctx context.Context, tx pgx.Tx, name string, amount int64, ttype, tref string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE user_wallets
		SET coins = coins - $2, updated_at = now()
		WHERE player_name = $1 AND coins >= $2
	`, name, amount)
	if err != nil {
		return fmt.Errorf("debit wallet %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientCoins
	}
	return writeLedger(ctx, tx, name, ttype, 0, amount, tref)
}

func credit(ctx context.Context, tx pgx.Tx, name string, amount int64, ttype, tref string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE user_wallets
		SET coins = coins + $2, updated_at = now()
		WHERE player_name = $1
	`, name, amount)
	if err != nil {
		return fmt.Errorf("credit wallet %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return writeLedger(ctx, tx, name, ttype, amount, 0, tref)
}

func recordResult(ctx context.Context, tx pgx.Tx, name string, won bool) error {
	col := "total_losses"
	if won {
		col = "total_wins"
	}
	_, err := tx.Exec(ctx, fmt.Sprintf(`
		UPDATE user_wallets SET %[1]s = %[1]s + 1, updated_at = now() WHERE player_name = $1
	`, col), name)
	if err != nil {
		return fmt.Errorf("record result for %s: %w", name, err)
	}
	return nil
}

func writeLedger(ctx context.Context, tx pgx.Tx, name, ttype string, dr, cr int64, tref string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO wallet_ledger (player_name, ttype, dr, cr, tref)
		VALUES ($1, $2, $3, $4, $5)
	`, name, ttype, decimal.NewFromInt(dr), decimal.NewFromInt(cr), tref)
	if err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}
