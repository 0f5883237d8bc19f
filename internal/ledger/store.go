// Package ledger defines the storage ports for cash-flow entries, recurrence
// templates, accounts and balance history. Implementations live in
// subpackages; the in-memory one backs tests and single-instance mode, the
// postgres one backs everything else.
package ledger

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/akozlov/cashfolio/internal/domain"
)

// EntryFilter narrows ListEntries. Zero-valued fields are ignored.
type EntryFilter struct {
	UserID     string
	AccountIDs []string
	Categories []string
	Directions []domain.Direction
	TemplateID string
	DateFrom   *civil.Date
	DateTo     *civil.Date
}

// TemplateFilter narrows ListTemplates. Zero-valued fields are ignored.
type TemplateFilter struct {
	UserID     string
	AccountIDs []string
}

// EntryStore persists cash-flow entries.
type EntryStore interface {
	// CreateEntry inserts a new entry. When the entry carries a template id
	// and an entry for the same (template, date) pair already exists, it
	// returns domain.ErrDuplicateOccurrence and writes nothing.
	CreateEntry(ctx context.Context, entry *domain.Entry) error

	// GetEntry returns the entry, or domain.ErrNotFound when it is absent
	// or owned by another user.
	GetEntry(ctx context.Context, id, userID string) (*domain.Entry, error)

	ListEntries(ctx context.Context, filter EntryFilter) ([]*domain.Entry, error)

	// OccurrenceExists is the materializer's idempotency check: whether any
	// entry exists for this template at exactly this date.
	OccurrenceExists(ctx context.Context, templateID string, date civil.Date) (bool, error)

	UpdateEntry(ctx context.Context, entry *domain.Entry) error

	DeleteEntry(ctx context.Context, id, userID string) error
}

// TemplateStore persists recurrence templates and their watermarks.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, template *domain.Template) error

	GetTemplate(ctx context.Context, id, userID string) (*domain.Template, error)

	ListTemplates(ctx context.Context, filter TemplateFilter) ([]*domain.Template, error)

	// ListCandidateTemplates returns a superset of the templates due at the
	// given calendar date: every template whose window could contain it.
	// The materializer re-applies the exact window in each template's own
	// time zone, so implementations may over-approximate by a day.
	ListCandidateTemplates(ctx context.Context, asOf civil.Date) ([]*domain.Template, error)

	UpdateTemplate(ctx context.Context, template *domain.Template) error

	DeleteTemplate(ctx context.Context, id, userID string) error

	// SetWatermark persists lastMaterializedAt for a template. The watermark
	// only moves forward; a date at or before the current watermark is a
	// no-op, not an error.
	SetWatermark(ctx context.Context, templateID string, date civil.Date) error
}

// AccountStore persists accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *domain.Account) error

	GetAccount(ctx context.Context, id, userID string) (*domain.Account, error)

	ListAccounts(ctx context.Context, userID string, withExcluded bool) ([]*domain.Account, error)

	UpdateAccount(ctx context.Context, account *domain.Account) error

	DeleteAccount(ctx context.Context, id, userID string) error
}

// BalanceStore maintains derived balance state.
type BalanceStore interface {
	// ApplyBalanceDelta adds delta (already converted into the account's
	// currency) to the account's running balance and merges it into the
	// balance-history record for date, creating the record if absent. The
	// whole operation is a single consistent step: concurrent readers never
	// observe the running balance and the history out of sync with each
	// other. Returns the new running balance.
	ApplyBalanceDelta(ctx context.Context, accountID, userID string, date civil.Date, delta decimal.Decimal) (decimal.Decimal, error)

	// BalanceHistory returns an account's history ordered by date ascending.
	BalanceHistory(ctx context.Context, accountID, userID string) ([]*domain.BalanceRecord, error)
}

// Store is the full ledger surface the services are wired against.
type Store interface {
	EntryStore
	TemplateStore
	AccountStore
	BalanceStore
}
