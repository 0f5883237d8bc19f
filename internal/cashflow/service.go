// Package cashflow is the core of the service: single-entry mutations, the
// recurrence template lifecycle, and the occurrence materializer. Every path
// that touches the ledger pairs its write with the exactly-compensating
// balance delta, so the balance-consistency invariant holds without replays.
package cashflow

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/akozlov/cashfolio/internal/balance"
	"github.com/akozlov/cashfolio/internal/domain"
	"github.com/akozlov/cashfolio/internal/exchange"
	"github.com/akozlov/cashfolio/internal/ledger"
	"github.com/akozlov/cashfolio/internal/notify"
)

// Service coordinates ledger mutations, balance synchronization and change
// notifications.
type Service struct {
	store    ledger.Store
	balances *balance.Synchronizer
	rates    exchange.RateService
	notifier notify.Notifier
	log      zerolog.Logger

	// locks serializes materialization per template id. Concurrent runs for
	// different templates proceed in parallel.
	locks keyedMutex

	now func() time.Time
}

// NewService wires the cashflow service.
func NewService(store ledger.Store, balances *balance.Synchronizer, rates exchange.RateService, notifier notify.Notifier, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		balances: balances,
		rates:    rates,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// CreateEntryInput carries the fields of a new ledger entry.
type CreateEntryInput struct {
	AccountID   string
	Amount      decimal.Decimal
	Currency    string
	Direction   domain.Direction
	Date        civil.Date
	Category    string
	Description string
	TemplateID  string
}

// UpdateEntryInput patches an existing entry. Nil fields are left unchanged.
// TemplateID set to the empty string detaches the entry from its template.
type UpdateEntryInput struct {
	AccountID   *string
	Amount      *decimal.Decimal
	Currency    *string
	Direction   *domain.Direction
	Date        *civil.Date
	Category    *string
	Description *string
	TemplateID  *string
}

// CreateEntry validates and persists a new entry, applies its signed amount
// to the owning account's balance, and emits a change notification.
//
// The rate lookup is pre-flighted before anything is written, so a missing
// historical rate rejects the create without leaving a dangling entry.
func (s *Service) CreateEntry(ctx context.Context, userID string, in CreateEntryInput) (*domain.Entry, error) {
	entry := &domain.Entry{
		ID:          uuid.New().String(),
		AccountID:   in.AccountID,
		UserID:      userID,
		Amount:      in.Amount,
		Currency:    in.Currency,
		Direction:   in.Direction,
		Date:        in.Date,
		Category:    in.Category,
		Description: in.Description,
		TemplateID:  in.TemplateID,
		CreatedAt:   s.now(),
	}

	if err := domain.ValidateEntry(entry); err != nil {
		return nil, err
	}

	account, err := s.store.GetAccount(ctx, entry.AccountID, userID)
	if err != nil {
		return nil, err
	}

	if entry.TemplateID != "" {
		if _, err := s.store.GetTemplate(ctx, entry.TemplateID, userID); err != nil {
			return nil, err
		}
	}

	if !entry.Amount.IsZero() {
		if _, err := s.rates.ConvertAt(ctx, entry.Amount, entry.Currency, account.Currency, entry.Date); err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}

	if err := s.applyEntryDelta(ctx, entry, false); err != nil {
		return nil, err
	}

	s.notifier.PortfolioChanged(ctx, userID)

	s.log.Info().
		Str("entry_id", entry.ID).
		Str("account_id", entry.AccountID).
		Str("amount", entry.Amount.String()).
		Str("direction", string(entry.Direction)).
		Str("date", entry.Date.String()).
		Msg("Entry created")

	return entry, nil
}

// GetEntry returns one entry owned by the user.
func (s *Service) GetEntry(ctx context.Context, id, userID string) (*domain.Entry, error) {
	return s.store.GetEntry(ctx, id, userID)
}

// ListEntries returns entries matching the filter. The user id on the filter
// is mandatory.
func (s *Service) ListEntries(ctx context.Context, filter ledger.EntryFilter) ([]*domain.Entry, error) {
	if filter.UserID == "" {
		return nil, &domain.ValidationError{Field: "userId", Reason: "required"}
	}
	return s.store.ListEntries(ctx, filter)
}

// UpdateEntry applies a patch to an entry. The balance effect of the
// pre-image is reversed on the old account before the post-image's effect is
// applied on the new one, so any combination of changed fields, including a
// move between accounts or currencies, leaves both balances consistent.
func (s *Service) UpdateEntry(ctx context.Context, id, userID string, in UpdateEntryInput) (*domain.Entry, error) {
	existing, err := s.store.GetEntry(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if in.AccountID != nil && *in.AccountID != existing.AccountID {
		if _, err := s.store.GetAccount(ctx, *in.AccountID, userID); err != nil {
			return nil, err
		}
		updated.AccountID = *in.AccountID
	}
	if in.TemplateID != nil {
		if *in.TemplateID != "" {
			if _, err := s.store.GetTemplate(ctx, *in.TemplateID, userID); err != nil {
				return nil, err
			}
		}
		updated.TemplateID = *in.TemplateID
	}
	if in.Amount != nil {
		updated.Amount = *in.Amount
	}
	if in.Currency != nil {
		updated.Currency = *in.Currency
	}
	if in.Direction != nil {
		updated.Direction = *in.Direction
	}
	if in.Date != nil {
		updated.Date = *in.Date
	}
	if in.Category != nil {
		updated.Category = *in.Category
	}
	if in.Description != nil {
		updated.Description = *in.Description
	}

	if err := domain.ValidateEntry(&updated); err != nil {
		return nil, err
	}

	// Pre-flight the post-image's rate lookup before anything is written, so
	// a missing historical rate rejects the update with both balances intact.
	if !updated.Amount.IsZero() {
		account, err := s.store.GetAccount(ctx, updated.AccountID, userID)
		if err != nil {
			return nil, err
		}
		if _, err := s.rates.ConvertAt(ctx, updated.Amount, updated.Currency, account.Currency, updated.Date); err != nil {
			return nil, err
		}
	}

	// Reverse the pre-image, persist, reapply the post-image.
	if err := s.applyEntryDelta(ctx, existing, true); err != nil {
		return nil, err
	}

	if err := s.store.UpdateEntry(ctx, &updated); err != nil {
		// Put the pre-image's effect back; otherwise the reversal alone
		// would leave the balance off by the old signed amount.
		if rerr := s.applyEntryDelta(ctx, existing, false); rerr != nil {
			s.log.Error().
				Err(rerr).
				Str("entry_id", existing.ID).
				Msg("Failed to restore balance after rejected entry update")
		}
		return nil, err
	}

	if err := s.applyEntryDelta(ctx, &updated, false); err != nil {
		return nil, err
	}

	s.notifier.PortfolioChanged(ctx, userID)

	return &updated, nil
}

// DeleteEntry removes an entry and reverses its balance effect.
func (s *Service) DeleteEntry(ctx context.Context, id, userID string) error {
	existing, err := s.store.GetEntry(ctx, id, userID)
	if err != nil {
		return err
	}

	if err := s.applyEntryDelta(ctx, existing, true); err != nil {
		return err
	}

	if err := s.store.DeleteEntry(ctx, id, userID); err != nil {
		return err
	}

	s.notifier.PortfolioChanged(ctx, userID)

	s.log.Info().Str("entry_id", id).Msg("Entry deleted")
	return nil
}

// applyEntryDelta applies the entry's signed amount to its account, negated
// for reversals. Zero amounts skip the balance call entirely.
func (s *Service) applyEntryDelta(ctx context.Context, entry *domain.Entry, reverse bool) error {
	amount := entry.SignedAmount()
	if amount.IsZero() {
		return nil
	}
	if reverse {
		amount = amount.Neg()
	}
	return s.balances.ApplyDelta(ctx, entry.AccountID, amount, entry.Currency, entry.Date, entry.UserID)
}
