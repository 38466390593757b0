package service

import (
	"context"

	"github.com/avvvet/npat-services/internal/gamesvc/models"
	"github.com/shopspring/decimal"
)

const ledgerLimit = 50

type WalletView struct {
	Wallet  *models.Wallet       `json:"wallet"`
	Balance string               `json:"balance"` // ledger sum, matches coins
	Ledger  []models.LedgerEntry `json:"ledger"`
}

type WalletService struct {
	wallets WalletRepo
}

func NewWalletService(wallets WalletRepo) *WalletService {
	return &WalletService{wallets: wallets}
}

// GetWallet opens the wallet on first use.
func (s *WalletService) GetWallet(ctx context.Context, name string) (*models.Wallet, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	return s.wallets.GetOrCreate(ctx, name)
}

func (s *WalletService) Statement(ctx context.Context, name string) (*WalletView, error) {
	w, err := s.GetWallet(ctx, name)
	if err != nil {
		return nil, err
	}
	entries, err := s.wallets.GetLedger(ctx, w.PlayerName, ledgerLimit)
	if err != nil {
		return nil, err
	}
	balance, err := s.wallets.LedgerBalance(ctx, w.PlayerName)
	if err != nil {
		return nil, err
	}
	return &WalletView{Wallet: w, Balance: balance.StringFixed(0), Ledger: entries}, nil
}

// Stakes lists the offered stake tiers and whether the player can afford each.
func (s *WalletService) Stakes(ctx context.Context, name string) ([]StakeOption, error) {
	w, err := s.GetWallet(ctx, name)
	if err != nil {
		return nil, err
	}
	coins := decimal.NewFromInt(w.Coins)
	options := make([]StakeOption, 0, len(models.StakeTiers))
	for _, t := range models.StakeTiers {
		options = append(options, StakeOption{
			StakeTier:  t,
			Prize:      t.Amount * 2,
			Affordable: coins.GreaterThanOrEqual(decimal.NewFromInt(int64(t.Amount))),
		})
	}
	return options, nil
}

type StakeOption struct {
	models.StakeTier
	Prize      int  `json:"prize"`
	Affordable bool `json:"affordable"`
}
