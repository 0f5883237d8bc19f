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

func (s *Store) CreateEntry(ctx context.Context, entry *domain.Entry) error {
	query := `
		INSERT INTO cashflow_entries (id, account_id, user_id, amount, currency, direction, date, category, description, template_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''))
		RETURNING created_at
	`
	err := s.pool.QueryRow(ctx, query,
		entry.ID, entry.AccountID, entry.UserID, entry.Amount.String(), entry.Currency,
		string(entry.Direction), dateArg(entry.Date), entry.Category, entry.Description, entry.TemplateID,
	).Scan(&entry.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateOccurrence
		}
		return fmt.Errorf("inserting entry: %w", err)
	}
	return nil
}

const entryColumns = `id, account_id, user_id, amount::text, currency, direction, date, category, description, COALESCE(template_id::text, ''), created_at, updated_at`

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var (
		e         domain.Entry
		amount    string
		direction string
		date      time.Time
	)
	err := row.Scan(&e.ID, &e.AccountID, &e.UserID, &amount, &e.Currency, &direction,
		&date, &e.Category, &e.Description, &e.TemplateID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	e.Amount, err = parseDecimal(amount)
	if err != nil {
		return nil, fmt.Errorf("parsing amount: %w", err)
	}
	e.Direction = domain.Direction(direction)
	e.Date = toCivil(date)
	return &e, nil
}

func (s *Store) GetEntry(ctx context.Context, id, userID string) (*domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM cashflow_entries WHERE id = $1 AND user_id = $2`
	entry, err := scanEntry(s.pool.QueryRow(ctx, query, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading entry: %w", err)
	}
	return entry, nil
}

func (s *Store) ListEntries(ctx context.Context, filter ledger.EntryFilter) ([]*domain.Entry, error) {
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
	if filter.TemplateID != "" {
		where = append(where, "template_id = "+arg(filter.TemplateID))
	}
	if len(filter.AccountIDs) > 0 {
		where = append(where, "account_id = ANY("+arg(filter.AccountIDs)+")")
	}
	if len(filter.Categories) > 0 {
		where = append(where, "category = ANY("+arg(filter.Categories)+")")
	}
	if len(filter.Directions) > 0 {
		directions := make([]string, len(filter.Directions))
		for i, d := range filter.Directions {
			directions[i] = string(d)
		}
		where = append(where, "direction = ANY("+arg(directions)+")")
	}
	if filter.DateFrom != nil {
		where = append(where, "date >= "+arg(dateArg(*filter.DateFrom)))
	}
	if filter.DateTo != nil {
		where = append(where, "date <= "+arg(dateArg(*filter.DateTo)))
	}

	query := `SELECT ` + entryColumns + ` FROM cashflow_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) OccurrenceExists(ctx context.Context, templateID string, date civil.Date) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM cashflow_entries WHERE template_id = $1 AND date = $2)`
	var exists bool
	if err := s.pool.QueryRow(ctx, query, templateID, dateArg(date)).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking occurrence: %w", err)
	}
	return exists, nil
}

func (s *Store) UpdateEntry(ctx context.Context, entry *domain.Entry) error {
	query := `
		UPDATE cashflow_entries
		SET account_id = $1, amount = $2, currency = $3, direction = $4, date = $5,
		    category = $6, description = $7, template_id = NULLIF($8, ''), updated_at = NOW()
		WHERE id = $9 AND user_id = $10
	`
	cmd, err := s.pool.Exec(ctx, query,
		entry.AccountID, entry.Amount.String(), entry.Currency, string(entry.Direction),
		dateArg(entry.Date), entry.Category, entry.Description, entry.TemplateID,
		entry.ID, entry.UserID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateOccurrence
		}
		return fmt.Errorf("updating entry: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, id, userID string) error {
	cmd, err := s.pool.Exec(ctx, `DELETE FROM cashflow_entries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
