package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const StartingCoins = 500

type Wallet struct {
	PlayerName  string    `json:"player_name"`
	Coins       int64     `json:"coins"`
	TotalWins   int       `json:"total_wins"`
	TotalLosses int       `json:"total_losses"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ledger transaction types
const (
	TTypeGrant  = "grant"
	TTypeStake  = "stake"
	TTypePrize  = "prize"
	TTypeRefund = "refund"
)

// LedgerEntry records one coin movement; dr adds to the wallet, cr takes from it.
type LedgerEntry struct {
	ID         int64           `json:"id"`
	PlayerName string          `json:"player_name"`
	TType      string          `json:"ttype"`
	Dr         decimal.Decimal `json:"dr"`
	Cr         decimal.Decimal `json:"cr"`
	TRef       string          `json:"tref"`
	CreatedAt  time.Time       `json:"created_at"`
}
