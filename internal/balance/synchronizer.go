// Package balance keeps account balances consistent with the ledger. Every
// entry mutation funnels its signed amount through ApplyDelta, which converts
// it into the account's currency at the historical rate for the entry's date
// and merges it into the balance history.
package balance

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/akozlov/cashfolio/internal/exchange"
	"github.com/akozlov/cashfolio/internal/ledger"
)

// Synchronizer applies signed, currency-converted deltas to account balances.
type Synchronizer struct {
	accounts ledger.AccountStore
	balances ledger.BalanceStore
	rates    exchange.RateService
	log      zerolog.Logger
}

// NewSynchronizer wires a synchronizer against its store and rate service.
func NewSynchronizer(accounts ledger.AccountStore, balances ledger.BalanceStore, rates exchange.RateService, log zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		accounts: accounts,
		balances: balances,
		rates:    rates,
		log:      log,
	}
}

// ApplyDelta converts amount from currency into the account's own currency
// at the rate effective on date, then merges the converted delta into the
// account's balance and balance history in one store call. The conversion
// always uses the rate at date, not at the time of the call, so backdated
// edits land with their historical effect.
//
// Returns domain.ErrNotFound when the account does not belong to the user
// and a *domain.ConversionError when the rate lookup fails; in both cases
// no balance state was touched.
func (s *Synchronizer) ApplyDelta(ctx context.Context, accountID string, amount decimal.Decimal, currency string, date civil.Date, userID string) error {
	account, err := s.accounts.GetAccount(ctx, accountID, userID)
	if err != nil {
		return err
	}

	converted, err := s.rates.ConvertAt(ctx, amount, currency, account.Currency, date)
	if err != nil {
		return err
	}

	newBalance, err := s.balances.ApplyBalanceDelta(ctx, accountID, userID, date, converted)
	if err != nil {
		return fmt.Errorf("applying balance delta to account %s: %w", accountID, err)
	}

	s.log.Debug().
		Str("account_id", accountID).
		Str("delta", converted.String()).
		Str("currency", account.Currency).
		Str("date", date.String()).
		Str("balance", newBalance.String()).
		Msg("Applied balance delta")

	return nil
}
