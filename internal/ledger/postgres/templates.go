package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"

	"github.com/akozlov/cashfolio/internal/domain"
	"github.com/akozlov/cashfolio/internal/ledger"
)

func (s *Store) CreateTemplate(ctx context.Context, template *domain.Template) error {
	query := `
		INSERT INTO cashflow_templates (id, account_id, user_id, amount, currency, direction, frequency, start_date, end_date, timezone, category, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`
	var endDate interface{}
	if template.EndDate != nil {
		endDate = dateArg(*template.EndDate)
	}
	err := s.pool.QueryRow(ctx, query,
		template.ID, template.AccountID, template.UserID, template.Amount.String(),
		template.Currency, string(template.Direction), string(template.Frequency),
		dateArg(template.StartDate), endDate, template.Timezone, template.Category, template.Description,
	).Scan(&template.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting template: %w", err)
	}
	return nil
}

const templateColumns = `id, account_id, user_id, amount::text, currency, direction, frequency, start_date, end_date, timezone, category, description, last_materialized_at, created_at, updated_at`

func scanTemplate(row pgx.Row) (*domain.Template, error) {
	var (
		t            domain.Template
		amount       string
		direction    string
		frequency    string
		startDate    time.Time
		endDate      *time.Time
		materialized *time.Time
	)
	err := row.Scan(&t.ID, &t.AccountID, &t.UserID, &amount, &t.Currency, &direction,
		&frequency, &startDate, &endDate, &t.Timezone, &t.Category, &t.Description,
		&materialized, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t.Amount, err = parseDecimal(amount)
	if err != nil {
		return nil, fmt.Errorf("parsing amount: %w", err)
	}
	t.Direction = domain.Direction(direction)
	t.Frequency = domain.Frequency(frequency)
	t.StartDate = toCivil(startDate)
	if endDate != nil {
		d := toCivil(*endDate)
		t.EndDate = &d
	}
	if materialized != nil {
		d := toCivil(*materialized)
		t.LastMaterializedAt = &d
	}
	return &t, nil
}

func (s *Store) GetTemplate(ctx context.Context, id, userID string) (*domain.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM cashflow_templates WHERE id = $1 AND user_id = $2`
	template, err := scanTemplate(s.pool.QueryRow(ctx, query, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading template: %w", err)
	}
	return template, nil
}

func (s *Store) ListTemplates(ctx context.Context, filter ledger.TemplateFilter) ([]*domain.Template, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != "" {
		where = append(where, "user_id = "+arg(filter.UserID))
	}
	if len(filter.AccountIDs) > 0 {
		where = append(where, "account_id = ANY("+arg(filter.AccountIDs)+")")
	}

	query := `SELECT ` + templateColumns + ` FROM cashflow_templates`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_date, id"

	return s.queryTemplates(ctx, query, args...)
}

func (s *Store) ListCandidateTemplates(ctx context.Context, asOf civil.Date) ([]*domain.Template, error) {
	// Window widened by a day each way; template time zones can shift the
	// local date relative to asOf and the materializer re-checks precisely.
	query := `
		SELECT ` + templateColumns + `
		FROM cashflow_templates
		WHERE start_date <= $1 AND (end_date IS NULL OR end_date >= $2)
		ORDER BY id
	`
	return s.queryTemplates(ctx, query, dateArg(asOf.AddDays(1)), dateArg(asOf.AddDays(-1)))
}

func (s *Store) queryTemplates(ctx context.Context, query string, args ...interface{}) ([]*domain.Template, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	defer rows.Close()

	var templates []*domain.Template
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		templates = append(templates, template)
	}
	return templates, rows.Err()
}

func (s *Store) UpdateTemplate(ctx context.Context, template *domain.Template) error {
	// last_materialized_at is deliberately not part of the update: only
	// SetWatermark moves it, and only forward.
	query := `
		UPDATE cashflow_templates
		SET account_id = $1, amount = $2, currency = $3, direction = $4, frequency = $5,
		    start_date = $6, end_date = $7, timezone = $8, category = $9, description = $10,
		    updated_at = NOW()
		WHERE id = $11 AND user_id = $12
	`
	var endDate interface{}
	if template.EndDate != nil {
		endDate = dateArg(*template.EndDate)
	}
	cmd, err := s.pool.Exec(ctx, query,
		template.AccountID, template.Amount.String(), template.Currency,
		string(template.Direction), string(template.Frequency), dateArg(template.StartDate),
		endDate, template.Timezone, template.Category, template.Description,
		template.ID, template.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating template: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTemplate(ctx context.Context, id, userID string) error {
	// Entries keep their template_id; the unique occurrence index keeps
	// protecting them even after the template is gone.
	cmd, err := s.pool.Exec(ctx, `DELETE FROM cashflow_templates WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) SetWatermark(ctx context.Context, templateID string, date civil.Date) error {
	// Forward-only by construction; a stale date affects zero rows and that
	// is fine.
	query := `
		UPDATE cashflow_templates
		SET last_materialized_at = $2, updated_at = NOW()
		WHERE id = $1 AND (last_materialized_at IS NULL OR last_materialized_at < $2)
	`
	if _, err := s.pool.Exec(ctx, query, templateID, dateArg(date)); err != nil {
		return fmt.Errorf("advancing watermark: %w", err)
	}
	return nil
}
