package cashflow

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/akozlov/cashfolio/internal/domain"
	"github.com/akozlov/cashfolio/internal/ledger"
)

// EntryWithBase is a ledger entry augmented with its value in a requested
// base currency, converted at the rate effective on the entry's date.
type EntryWithBase struct {
	*domain.Entry
	AmountInBase       decimal.Decimal
	SignedAmountInBase decimal.Decimal
}

// CashDetails aggregates a user's cash position in one base currency.
type CashDetails struct {
	Accounts     []*domain.Account
	TotalInBase  decimal.Decimal
	Entries      []*EntryWithBase
	Templates    []*domain.Template
	BaseCurrency string
}

// CashDetailsOptions narrows the report.
type CashDetailsOptions struct {
	AccountIDs           []string
	Categories           []string
	Directions           []domain.Direction
	WithExcludedAccounts bool
}

// GetCashDetails reports the user's accounts, entries and templates with
// everything expressed in baseCurrency. Account balances convert at the rate
// effective today; entries convert at the rate effective on their own date.
func (s *Service) GetCashDetails(ctx context.Context, userID, baseCurrency string, opts CashDetailsOptions) (*CashDetails, error) {
	if !domain.ValidCurrencyCode(baseCurrency) {
		return nil, &domain.ValidationError{Field: "baseCurrency", Reason: "must be an ISO 4217 code"}
	}

	accounts, err := s.store.ListAccounts(ctx, userID, opts.WithExcludedAccounts)
	if err != nil {
		return nil, err
	}

	if len(opts.AccountIDs) > 0 {
		accounts = filterAccounts(accounts, opts.AccountIDs)
	}

	today := civil.DateOf(s.now().UTC())

	total := decimal.Zero
	for _, account := range accounts {
		converted, err := s.rates.ConvertAt(ctx, account.Balance, account.Currency, baseCurrency, today)
		if err != nil {
			return nil, err
		}
		total = total.Add(converted)
	}

	entries, err := s.store.ListEntries(ctx, ledger.EntryFilter{
		UserID:     userID,
		AccountIDs: opts.AccountIDs,
		Categories: opts.Categories,
		Directions: opts.Directions,
	})
	if err != nil {
		return nil, err
	}

	withBase := make([]*EntryWithBase, 0, len(entries))
	for _, entry := range entries {
		amountInBase, err := s.rates.ConvertAt(ctx, entry.Amount, entry.Currency, baseCurrency, entry.Date)
		if err != nil {
			return nil, err
		}
		signed := amountInBase
		if entry.Direction == domain.Outflow {
			signed = amountInBase.Neg()
		}
		withBase = append(withBase, &EntryWithBase{
			Entry:              entry,
			AmountInBase:       amountInBase,
			SignedAmountInBase: signed,
		})
	}

	templates, err := s.store.ListTemplates(ctx, ledger.TemplateFilter{
		UserID:     userID,
		AccountIDs: opts.AccountIDs,
	})
	if err != nil {
		return nil, err
	}

	return &CashDetails{
		Accounts:     accounts,
		TotalInBase:  total,
		Entries:      withBase,
		Templates:    templates,
		BaseCurrency: baseCurrency,
	}, nil
}

func filterAccounts(accounts []*domain.Account, ids []string) []*domain.Account {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	var out []*domain.Account
	for _, account := range accounts {
		if keep[account.ID] {
			out = append(out, account)
		}
	}
	return out
}
