package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/akozlov/cashfolio/internal/domain"
)

func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO cash_accounts (id, user_id, name, currency, balance, is_excluded)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := s.pool.QueryRow(ctx, query,
		account.ID, account.UserID, account.Name, account.Currency,
		account.Balance.String(), account.IsExcluded,
	).Scan(&account.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting account: %w", err)
	}
	return nil
}

const accountColumns = `id, user_id, name, currency, balance::text, is_excluded, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a       domain.Account
		balance string
	)
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Currency, &balance, &a.IsExcluded, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Balance, err = parseDecimal(balance)
	if err != nil {
		return nil, fmt.Errorf("parsing balance: %w", err)
	}
	return &a, nil
}

func (s *Store) GetAccount(ctx context.Context, id, userID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM cash_accounts WHERE id = $1 AND user_id = $2`
	account, err := scanAccount(s.pool.QueryRow(ctx, query, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading account: %w", err)
	}
	return account, nil
}

func (s *Store) ListAccounts(ctx context.Context, userID string, withExcluded bool) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM cash_accounts WHERE user_id = $1`
	if !withExcluded {
		query += ` AND is_excluded = FALSE`
	}
	query += ` ORDER BY name`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (s *Store) UpdateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE cash_accounts
		SET name = $1, is_excluded = $2, updated_at = NOW()
		WHERE id = $3 AND user_id = $4
	`
	cmd, err := s.pool.Exec(ctx, query, account.Name, account.IsExcluded, account.ID, account.UserID)
	if err != nil {
		return fmt.Errorf("updating account: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	account.UpdatedAt = time.Now()
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, id, userID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM account_balances WHERE account_id = $1 AND user_id = $2`, id, userID); err != nil {
		return fmt.Errorf("deleting balance history: %w", err)
	}

	cmd, err := tx.Exec(ctx, `DELETE FROM cash_accounts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return tx.Commit(ctx)
}
