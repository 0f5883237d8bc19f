// Package postgres is the durable ledger store. Raw SQL over a pgx pool; no
// ORM. Expected schema:
//
//	CREATE TABLE cash_accounts (
//	    id          UUID PRIMARY KEY,
//	    user_id     UUID NOT NULL,
//	    name        TEXT NOT NULL,
//	    currency    CHAR(3) NOT NULL,
//	    balance     NUMERIC(20,8) NOT NULL DEFAULT 0,
//	    is_excluded BOOLEAN NOT NULL DEFAULT FALSE,
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
//	CREATE TABLE cashflow_templates (
//	    id                   UUID PRIMARY KEY,
//	    account_id           UUID NOT NULL REFERENCES cash_accounts (id),
//	    user_id              UUID NOT NULL,
//	    amount               NUMERIC(20,8) NOT NULL,
//	    currency             CHAR(3) NOT NULL,
//	    direction            TEXT NOT NULL,
//	    frequency            TEXT NOT NULL,
//	    start_date           DATE NOT NULL,
//	    end_date             DATE,
//	    timezone             TEXT NOT NULL DEFAULT 'UTC',
//	    category             TEXT NOT NULL DEFAULT '',
//	    description          TEXT NOT NULL DEFAULT '',
//	    last_materialized_at DATE,
//	    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
//	CREATE TABLE cashflow_entries (
//	    id          UUID PRIMARY KEY,
//	    account_id  UUID NOT NULL REFERENCES cash_accounts (id),
//	    user_id     UUID NOT NULL,
//	    amount      NUMERIC(20,8) NOT NULL CHECK (amount >= 0),
//	    currency    CHAR(3) NOT NULL,
//	    direction   TEXT NOT NULL,
//	    date        DATE NOT NULL,
//	    category    TEXT NOT NULL DEFAULT '',
//	    description TEXT NOT NULL DEFAULT '',
//	    template_id UUID,
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
//	-- The idempotency backstop: a materialization race between two runs
//	-- becomes a duplicate-key rejection the second writer swallows.
//	CREATE UNIQUE INDEX uq_entry_occurrence
//	    ON cashflow_entries (template_id, date) WHERE template_id IS NOT NULL;
//
//	CREATE TABLE account_balances (
//	    account_id UUID NOT NULL REFERENCES cash_accounts (id),
//	    user_id    UUID NOT NULL,
//	    date       DATE NOT NULL,
//	    value      NUMERIC(20,8) NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    PRIMARY KEY (account_id, date)
//	);
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/akozlov/cashfolio/internal/ledger"
)

// Store implements ledger.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database and verifies the connection.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// NewStoreWithPool wraps an existing pool; the caller keeps ownership.
func NewStoreWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// toCivil converts a DATE column value.
func toCivil(t time.Time) civil.Date {
	return civil.DateOf(t)
}

// dateArg renders a civil.Date for a DATE parameter.
func dateArg(d civil.Date) string {
	return d.String()
}

// parseDecimal converts a NUMERIC selected as text.
func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

var _ ledger.Store = (*Store)(nil)
