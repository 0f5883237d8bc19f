package cashflow

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/akozlov/cashfolio/internal/domain"
	"github.com/akozlov/cashfolio/internal/ledger"
)

// CreateTemplateInput carries the fields of a new recurrence template.
type CreateTemplateInput struct {
	AccountID   string
	Amount      decimal.Decimal
	Currency    string
	Direction   domain.Direction
	Frequency   domain.Frequency
	StartDate   civil.Date
	EndDate     *civil.Date
	Timezone    string
	Category    string
	Description string
}

// UpdateTemplateInput patches a template. Nil fields are left unchanged;
// ClearEndDate removes an end date. The watermark is not patchable: it
// belongs to the materializer and is never moved backward by an edit.
type UpdateTemplateInput struct {
	AccountID    *string
	Amount       *decimal.Decimal
	Currency     *string
	Direction    *domain.Direction
	Frequency    *domain.Frequency
	StartDate    *civil.Date
	EndDate      *civil.Date
	ClearEndDate bool
	Timezone     *string
	Category     *string
	Description  *string
}

// CreateTemplate validates and persists a new recurrence template. Nothing
// materializes until the next run of MaterializeDue.
func (s *Service) CreateTemplate(ctx context.Context, userID string, in CreateTemplateInput) (*domain.Template, error) {
	template := &domain.Template{
		ID:          uuid.New().String(),
		AccountID:   in.AccountID,
		UserID:      userID,
		Amount:      in.Amount,
		Currency:    in.Currency,
		Direction:   in.Direction,
		Frequency:   in.Frequency,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Timezone:    in.Timezone,
		Category:    in.Category,
		Description: in.Description,
		CreatedAt:   s.now(),
	}
	if template.Timezone == "" {
		template.Timezone = "UTC"
	}

	if err := domain.ValidateTemplate(template); err != nil {
		return nil, err
	}

	if _, err := s.store.GetAccount(ctx, template.AccountID, userID); err != nil {
		return nil, err
	}

	if err := s.store.CreateTemplate(ctx, template); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("template_id", template.ID).
		Str("frequency", string(template.Frequency)).
		Str("start_date", template.StartDate.String()).
		Msg("Template created")

	return template, nil
}

// GetTemplate returns one template owned by the user.
func (s *Service) GetTemplate(ctx context.Context, id, userID string) (*domain.Template, error) {
	return s.store.GetTemplate(ctx, id, userID)
}

// ListTemplates returns the user's templates, optionally narrowed to a set
// of accounts.
func (s *Service) ListTemplates(ctx context.Context, filter ledger.TemplateFilter) ([]*domain.Template, error) {
	if filter.UserID == "" {
		return nil, &domain.ValidationError{Field: "userId", Reason: "required"}
	}
	return s.store.ListTemplates(ctx, filter)
}

// UpdateTemplate applies a patch to a template. Edits take effect from the
// next materialization run onward; already-materialized entries are not
// touched, and moving the start date earlier does not retro-materialize past
// occurrences because the watermark is preserved as-is.
func (s *Service) UpdateTemplate(ctx context.Context, id, userID string, in UpdateTemplateInput) (*domain.Template, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	existing, err := s.store.GetTemplate(ctx, id, userID)
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
	if in.Amount != nil {
		updated.Amount = *in.Amount
	}
	if in.Currency != nil {
		updated.Currency = *in.Currency
	}
	if in.Direction != nil {
		updated.Direction = *in.Direction
	}
	if in.Frequency != nil {
		updated.Frequency = *in.Frequency
	}
	if in.StartDate != nil {
		updated.StartDate = *in.StartDate
	}
	if in.ClearEndDate {
		updated.EndDate = nil
	} else if in.EndDate != nil {
		updated.EndDate = in.EndDate
	}
	if in.Timezone != nil {
		updated.Timezone = *in.Timezone
	}
	if in.Category != nil {
		updated.Category = *in.Category
	}
	if in.Description != nil {
		updated.Description = *in.Description
	}

	if err := domain.ValidateTemplate(&updated); err != nil {
		return nil, err
	}

	if err := s.store.UpdateTemplate(ctx, &updated); err != nil {
		return nil, err
	}

	return &updated, nil
}

// DeleteTemplate removes a template. Entries it already materialized stay in
// the ledger with their balance effects intact.
func (s *Service) DeleteTemplate(ctx context.Context, id, userID string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	if err := s.store.DeleteTemplate(ctx, id, userID); err != nil {
		return err
	}
	s.locks.forget(id)

	s.log.Info().Str("template_id", id).Msg("Template deleted")
	return nil
}
