// Package snapshot writes point-in-time CSV exports of the ledger to blob
// storage. Snapshots are an operational backstop: balances are derived state,
// and a snapshot of the raw entries is enough to recompute them.
package snapshot

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/akozlov/cashfolio/internal/domain"
	"github.com/akozlov/cashfolio/internal/ledger"
)

// Snapshotter exports ledger contents as CSV objects.
type Snapshotter struct {
	store   ledger.Store
	objects ObjectStore
	log     zerolog.Logger
}

// New creates a snapshotter reading from store and writing to objects.
func New(store ledger.Store, objects ObjectStore, log zerolog.Logger) *Snapshotter {
	return &Snapshotter{store: store, objects: objects, log: log}
}

// Write exports all entries and templates, returning the object names
// written. Objects are keyed by the asOf timestamp so successive snapshots
// never overwrite each other.
func (s *Snapshotter) Write(ctx context.Context, asOf time.Time) ([]string, error) {
	prefix := asOf.UTC().Format("snapshots/2006-01-02T15-04-05Z")

	entries, err := s.store.ListEntries(ctx, ledger.EntryFilter{})
	if err != nil {
		return nil, fmt.Errorf("snapshot: listing entries: %w", err)
	}
	templates, err := s.store.ListTemplates(ctx, ledger.TemplateFilter{})
	if err != nil {
		return nil, fmt.Errorf("snapshot: listing templates: %w", err)
	}

	entriesObject := prefix + "/entries.csv"
	if err := s.objects.Upload(ctx, entriesObject, entriesCSV(entries)); err != nil {
		return nil, fmt.Errorf("snapshot: uploading entries: %w", err)
	}
	templatesObject := prefix + "/templates.csv"
	if err := s.objects.Upload(ctx, templatesObject, templatesCSV(templates)); err != nil {
		return nil, fmt.Errorf("snapshot: uploading templates: %w", err)
	}

	s.log.Info().
		Int("entries", len(entries)).
		Int("templates", len(templates)).
		Str("prefix", prefix).
		Msg("Ledger snapshot written")

	return []string{entriesObject, templatesObject}, nil
}

func entriesCSV(entries []*domain.Entry) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{"id", "user_id", "account_id", "template_id", "date", "amount", "currency", "direction", "category", "description"})
	for _, e := range entries {
		w.Write([]string{
			e.ID,
			e.UserID,
			e.AccountID,
			e.TemplateID,
			e.Date.String(),
			e.Amount.String(),
			e.Currency,
			string(e.Direction),
			e.Category,
			e.Description,
		})
	}
	w.Flush()
	return buf.Bytes()
}

func templatesCSV(templates []*domain.Template) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{"id", "user_id", "account_id", "amount", "currency", "direction", "frequency", "start_date", "end_date", "timezone", "last_materialized_at"})
	for _, t := range templates {
		endDate := ""
		if t.EndDate != nil {
			endDate = t.EndDate.String()
		}
		watermark := ""
		if t.LastMaterializedAt != nil {
			watermark = t.LastMaterializedAt.String()
		}
		w.Write([]string{
			t.ID,
			t.UserID,
			t.AccountID,
			t.Amount.String(),
			t.Currency,
			string(t.Direction),
			string(t.Frequency),
			t.StartDate.String(),
			endDate,
			t.Timezone,
			watermark,
		})
	}
	w.Flush()
	return buf.Bytes()
}
