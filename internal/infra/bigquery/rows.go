// Package bigquery exports the ledger to BigQuery for analytics. The tables
// are append-only; each export run stamps its rows with the run timestamp so
// queries can pick the latest snapshot.
package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// EntryRow mirrors one cash-flow entry in the analytics dataset.
type EntryRow struct {
	EntryID   string `bigquery:"entry_id"`   // REQUIRED
	UserID    string `bigquery:"user_id"`    // REQUIRED
	AccountID string `bigquery:"account_id"` // REQUIRED

	TemplateID bigquery.NullString `bigquery:"template_id"` // NULLABLE, set for materialized entries

	EntryDate civil.Date `bigquery:"entry_date"` // REQUIRED

	Amount       *big.Rat `bigquery:"amount"`        // REQUIRED NUMERIC, always positive
	SignedAmount *big.Rat `bigquery:"signed_amount"` // REQUIRED NUMERIC, negative for outflows
	Currency     string   `bigquery:"currency"`      // REQUIRED
	Direction    string   `bigquery:"direction"`     // REQUIRED

	Category    bigquery.NullString `bigquery:"category"`    // NULLABLE
	Description bigquery.NullString `bigquery:"description"` // NULLABLE

	ExportedTS time.Time `bigquery:"exported_ts"` // REQUIRED
}

// BalanceRow mirrors one dated balance record in the analytics dataset.
type BalanceRow struct {
	AccountID string     `bigquery:"account_id"` // REQUIRED
	UserID    string     `bigquery:"user_id"`    // REQUIRED
	Date      civil.Date `bigquery:"date"`       // REQUIRED

	Value    *big.Rat `bigquery:"value"`    // REQUIRED NUMERIC, running balance at end of day
	Currency string   `bigquery:"currency"` // REQUIRED

	ExportedTS time.Time `bigquery:"exported_ts"` // REQUIRED
}
