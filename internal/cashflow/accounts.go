package cashflow

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/akozlov/cashfolio/internal/domain"
)

// CreateAccountInput carries the fields of a new account.
type CreateAccountInput struct {
	Name           string
	Currency       string
	InitialBalance decimal.Decimal
	IsExcluded     bool
}

// UpdateAccountInput patches an account. Nil fields are left unchanged. The
// balance is not patchable: it is derived from the ledger.
type UpdateAccountInput struct {
	Name       *string
	IsExcluded *bool
}

// CreateAccount persists a new account and records its initial balance as
// the day-zero balance-history entry.
func (s *Service) CreateAccount(ctx context.Context, userID string, in CreateAccountInput) (*domain.Account, error) {
	if in.Name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "required"}
	}
	if !domain.ValidCurrencyCode(in.Currency) {
		return nil, &domain.ValidationError{Field: "currency", Reason: "must be an ISO 4217 code"}
	}
	if in.InitialBalance.IsNegative() {
		return nil, &domain.ValidationError{Field: "initialBalance", Reason: "must not be negative"}
	}

	account := &domain.Account{
		ID:         uuid.New().String(),
		UserID:     userID,
		Name:       in.Name,
		Currency:   in.Currency,
		IsExcluded: in.IsExcluded,
		CreatedAt:  s.now(),
	}

	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	if !in.InitialBalance.IsZero() {
		today := civil.DateOf(s.now().UTC())
		newBalance, err := s.store.ApplyBalanceDelta(ctx, account.ID, userID, today, in.InitialBalance)
		if err != nil {
			return nil, err
		}
		account.Balance = newBalance
	}

	s.notifier.PortfolioChanged(ctx, userID)

	s.log.Info().
		Str("account_id", account.ID).
		Str("currency", account.Currency).
		Msg("Account created")

	return account, nil
}

// GetAccount returns one account owned by the user.
func (s *Service) GetAccount(ctx context.Context, id, userID string) (*domain.Account, error) {
	return s.store.GetAccount(ctx, id, userID)
}

// ListAccounts returns the user's accounts.
func (s *Service) ListAccounts(ctx context.Context, userID string, withExcluded bool) ([]*domain.Account, error) {
	return s.store.ListAccounts(ctx, userID, withExcluded)
}

// UpdateAccount applies a patch to an account.
func (s *Service) UpdateAccount(ctx context.Context, id, userID string, in UpdateAccountInput) (*domain.Account, error) {
	existing, err := s.store.GetAccount(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if in.Name != nil {
		if *in.Name == "" {
			return nil, &domain.ValidationError{Field: "name", Reason: "required"}
		}
		updated.Name = *in.Name
	}
	if in.IsExcluded != nil {
		updated.IsExcluded = *in.IsExcluded
	}

	if err := s.store.UpdateAccount(ctx, &updated); err != nil {
		return nil, err
	}

	s.notifier.PortfolioChanged(ctx, userID)
	return &updated, nil
}

// DeleteAccount removes an account and its balance history.
func (s *Service) DeleteAccount(ctx context.Context, id, userID string) error {
	if err := s.store.DeleteAccount(ctx, id, userID); err != nil {
		return err
	}

	s.notifier.PortfolioChanged(ctx, userID)
	s.log.Info().Str("account_id", id).Msg("Account deleted")
	return nil
}
