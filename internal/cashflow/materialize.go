package cashflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/akozlov/cashfolio/internal/domain"
	"github.com/akozlov/cashfolio/internal/recurrence"
)

// MaterializeDue turns every due recurrence template into concrete ledger
// entries up to asOf. It is safe to call repeatedly and concurrently: the
// per-date existence check (backed by the store's uniqueness rejection) makes
// re-runs no-ops, and a keyed mutex serializes work per template.
//
// One template's failure never aborts the others; it is logged, its watermark
// stays put, and the next run retries it.
func (s *Service) MaterializeDue(ctx context.Context, asOf time.Time) error {
	templates, err := s.store.ListCandidateTemplates(ctx, civil.DateOf(asOf.UTC()))
	if err != nil {
		return fmt.Errorf("listing due templates: %w", err)
	}

	var created, failed int
	for _, template := range templates {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, err := s.materializeTemplate(ctx, template, asOf)
		created += n
		if err != nil {
			failed++
			s.log.Error().
				Err(err).
				Str("template_id", template.ID).
				Str("user_id", template.UserID).
				Msg("Materialization failed for template, will retry next run")
		}
	}

	s.log.Info().
		Time("as_of", asOf).
		Int("templates", len(templates)).
		Int("entries_created", created).
		Int("failed", failed).
		Msg("Materialization run finished")

	return nil
}

// materializeTemplate processes one template under its lock and returns the
// number of entries created.
func (s *Service) materializeTemplate(ctx context.Context, template *domain.Template, asOf time.Time) (int, error) {
	unlock := s.locks.lock(template.ID)
	defer unlock()

	loc, err := template.Location()
	if err != nil {
		return 0, fmt.Errorf("resolving template time zone %q: %w", template.Timezone, err)
	}

	// "Due" is judged on the calendar date in the template's own zone, so a
	// monthly template on the 1st fires on the 1st in that zone.
	refDate := civil.DateOf(asOf.In(loc))

	if template.StartDate.After(refDate) {
		return 0, nil
	}
	if template.EndDate != nil && template.EndDate.Before(refDate) {
		return 0, nil
	}

	if !template.Frequency.Recurring() {
		// A non-recurring template fires exactly once, at its start date,
		// and only while the watermark is still unset. A deleted one-off
		// entry is not recreated.
		if template.LastMaterializedAt != nil {
			return 0, nil
		}
		if err := s.materializeOccurrence(ctx, template, template.StartDate); err != nil {
			return 0, err
		}
		if err := s.store.SetWatermark(ctx, template.ID, template.StartDate); err != nil {
			return 1, fmt.Errorf("recording one-off occurrence at %s: %w", template.StartDate, err)
		}
		return 1, nil
	}

	// The cursor resumes from the watermark when one exists. The first
	// candidate is the cursor itself, not its successor: if a previous run
	// created the entry but crashed before advancing the watermark, the
	// existence check below consumes that date without duplicating it.
	candidate := template.StartDate
	if template.LastMaterializedAt != nil {
		candidate = *template.LastMaterializedAt
	}

	created := 0
	for {
		if ctx.Err() != nil {
			return created, ctx.Err()
		}
		if template.EndDate != nil && candidate.After(*template.EndDate) {
			break
		}
		if candidate.After(refDate) {
			break
		}

		exists, err := s.store.OccurrenceExists(ctx, template.ID, candidate)
		if err != nil {
			return created, fmt.Errorf("occurrence check at %s: %w", candidate, err)
		}

		if !exists {
			if err := s.materializeOccurrence(ctx, template, candidate); err != nil {
				return created, err
			}
			created++
		}

		// The watermark advances immediately after each occurrence is known
		// to exist, never batched, so a crash loses at most the in-flight
		// occurrence and the next run resumes at the right date.
		if err := s.store.SetWatermark(ctx, template.ID, candidate); err != nil {
			return created, fmt.Errorf("advancing watermark to %s: %w", candidate, err)
		}

		next, ok := recurrence.Next(candidate, template.Frequency)
		if !ok {
			break
		}
		candidate = next
	}

	return created, nil
}

// materializeOccurrence creates the ledger entry for one occurrence date.
// A duplicate-occurrence rejection from the store means a concurrent run got
// there first; that is a success, not a failure.
func (s *Service) materializeOccurrence(ctx context.Context, template *domain.Template, date civil.Date) error {
	_, err := s.CreateEntry(ctx, template.UserID, CreateEntryInput{
		AccountID:   template.AccountID,
		Amount:      template.Amount,
		Currency:    template.Currency,
		Direction:   template.Direction,
		Date:        date,
		Category:    template.Category,
		Description: template.Description,
		TemplateID:  template.ID,
	})
	if errors.Is(err, domain.ErrDuplicateOccurrence) {
		s.log.Debug().
			Str("template_id", template.ID).
			Str("date", date.String()).
			Msg("Occurrence already materialized by a concurrent run")
		return nil
	}
	if err != nil {
		return fmt.Errorf("materializing occurrence at %s: %w", date, err)
	}
	return nil
}
