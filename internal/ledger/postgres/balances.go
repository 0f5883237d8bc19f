package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/akozlov/cashfolio/internal/domain"
)

// ApplyBalanceDelta updates the running balance and the history record in a
// single transaction, so concurrent readers never see one without the other.
// Concurrent deltas on the same account serialize on the row lock the UPDATE
// takes; deltas are additive, so their order does not matter.
func (s *Store) ApplyBalanceDelta(ctx context.Context, accountID, userID string, date civil.Date, delta decimal.Decimal) (decimal.Decimal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var newBalance string
	err = tx.QueryRow(ctx, `
		UPDATE cash_accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2 AND user_id = $3
		RETURNING balance::text
	`, delta.String(), accountID, userID).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Decimal{}, domain.ErrNotFound
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("updating running balance: %w", err)
	}

	// New history records start at the fresh running balance; existing ones
	// absorb the delta.
	_, err = tx.Exec(ctx, `
		INSERT INTO account_balances (account_id, user_id, date, value, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (account_id, date)
		DO UPDATE SET value = account_balances.value + $5, updated_at = NOW()
	`, accountID, userID, dateArg(date), newBalance, delta.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("upserting balance record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Decimal{}, fmt.Errorf("committing balance delta: %w", err)
	}

	return parseDecimal(newBalance)
}

func (s *Store) BalanceHistory(ctx context.Context, accountID, userID string) ([]*domain.BalanceRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT account_id, user_id, date, value::text, updated_at
		FROM account_balances
		WHERE account_id = $1 AND user_id = $2
		ORDER BY date
	`, accountID, userID)
	if err != nil {
		return nil, fmt.Errorf("listing balance history: %w", err)
	}
	defer rows.Close()

	var records []*domain.BalanceRecord
	for rows.Next() {
		var (
			r     domain.BalanceRecord
			date  time.Time
			value string
		)
		if err := rows.Scan(&r.AccountID, &r.UserID, &date, &value, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning balance record: %w", err)
		}
		r.Date = toCivil(date)
		r.Value, err = parseDecimal(value)
		if err != nil {
			return nil, fmt.Errorf("parsing balance value: %w", err)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}
