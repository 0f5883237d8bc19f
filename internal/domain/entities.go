package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Account is a user-owned cash account. Balance is derived state: it is the
// running sum of signed entry amounts converted into the account's currency,
// maintained incrementally by the balance synchronizer and recomputable from
// the ledger at any time.
type Account struct {
	ID         string
	UserID     string
	Name       string
	Currency   string // ISO 4217
	Balance    decimal.Decimal
	IsExcluded bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Entry is one dated cash movement in the ledger. TemplateID is empty for
// one-off entries and set when the entry was materialized from a template,
// in which case (TemplateID, Date) is unique across the ledger.
type Entry struct {
	ID          string
	AccountID   string
	UserID      string
	Amount      decimal.Decimal // always >= 0; Direction carries the sign
	Currency    string
	Direction   Direction
	Date        civil.Date
	Category    string
	Description string
	TemplateID  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SignedAmount is the entry's effect on a balance in the entry's own
// currency: positive for inflows, negative for outflows.
func (e *Entry) SignedAmount() decimal.Decimal {
	if e.Direction == Outflow {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Template describes a scheduled cash movement and the cursor of its
// materialization. LastMaterializedAt is the watermark: the latest occurrence
// date for which an entry has been durably created. It is nil until the first
// occurrence materializes and is only ever moved forward.
type Template struct {
	ID          string
	AccountID   string
	UserID      string
	Amount      decimal.Decimal
	Currency    string
	Direction   Direction
	Frequency   Frequency
	StartDate   civil.Date
	EndDate     *civil.Date // inclusive; nil means open-ended
	Timezone    string      // IANA zone the occurrence dates are anchored in
	Category    string
	Description string

	LastMaterializedAt *civil.Date
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Location resolves the template's time zone, falling back to UTC when the
// template carries no zone.
func (t *Template) Location() (*time.Location, error) {
	if t.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(t.Timezone)
}

// BalanceRecord is one point in an account's balance history: the account
// balance as of Date, after all entries dated on or before it.
type BalanceRecord struct {
	AccountID string
	UserID    string
	Date      civil.Date
	Value     decimal.Decimal
	UpdatedAt time.Time
}
