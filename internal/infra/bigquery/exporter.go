package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/akozlov/cashfolio/internal/domain"
)

const (
	entriesTable  = "cashflow_entries"
	balancesTable = "account_balances"
)

// Exporter writes ledger rows into a BigQuery dataset. It holds a shared
// client to avoid creating a new connection for each operation.
type Exporter struct {
	client  *bigquery.Client
	dataset string
}

// NewExporter creates an exporter for the given dataset. The project is
// resolved from application default credentials.
func NewExporter(ctx context.Context, dataset string) (*Exporter, error) {
	client, err := bigquery.NewClient(ctx, bigquery.DetectProjectID)
	if err != nil {
		return nil, fmt.Errorf("NewExporter: creating client: %w", err)
	}
	return &Exporter{client: client, dataset: dataset}, nil
}

// NewExporterWithClient creates an exporter using the provided client.
func NewExporterWithClient(client *bigquery.Client, dataset string) *Exporter {
	return &Exporter{client: client, dataset: dataset}
}

// Close closes the BigQuery client connection.
func (e *Exporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// InsertEntries streams a batch of entries into the dataset, stamped with
// exportedAt.
func (e *Exporter) InsertEntries(ctx context.Context, entries []*domain.Entry, exportedAt time.Time) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]*EntryRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, toEntryRow(entry, exportedAt))
	}

	inserter := e.client.Dataset(e.dataset).Table(entriesTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertEntries: inserting rows: %w", err)
	}
	return nil
}

// InsertBalances streams a batch of balance history records into the dataset,
// stamped with exportedAt.
func (e *Exporter) InsertBalances(ctx context.Context, records []*domain.BalanceRecord, currencies map[string]string, exportedAt time.Time) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]*BalanceRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, &BalanceRow{
			AccountID:  record.AccountID,
			UserID:     record.UserID,
			Date:       record.Date,
			Value:      record.Value.Rat(),
			Currency:   currencies[record.AccountID],
			ExportedTS: exportedAt,
		})
	}

	inserter := e.client.Dataset(e.dataset).Table(balancesTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertBalances: inserting rows: %w", err)
	}
	return nil
}

// QueryEntriesByDateRange reads exported entries within the date range,
// keeping only the most recent export of each entry.
func (e *Exporter) QueryEntriesByDateRange(ctx context.Context, from, to civil.Date) ([]*EntryRow, error) {
	q := e.client.Query(fmt.Sprintf(`
		SELECT
			entry_id,
			user_id,
			account_id,
			template_id,
			entry_date,
			amount,
			signed_amount,
			currency,
			direction,
			category,
			description,
			exported_ts
		FROM %s
		WHERE entry_date >= @from_date
		  AND entry_date <= @to_date
		QUALIFY ROW_NUMBER() OVER (PARTITION BY entry_id ORDER BY exported_ts DESC) = 1
		ORDER BY entry_date, entry_id
	`, "`"+e.dataset+"."+entriesTable+"`"))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "from_date", Value: from.String()},
		{Name: "to_date", Value: to.String()},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryEntriesByDateRange: query read: %w", err)
	}

	var rows []*EntryRow
	for {
		var row EntryRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryEntriesByDateRange: iter next: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}

func toEntryRow(entry *domain.Entry, exportedAt time.Time) *EntryRow {
	return &EntryRow{
		EntryID:      entry.ID,
		UserID:       entry.UserID,
		AccountID:    entry.AccountID,
		TemplateID:   nullString(entry.TemplateID),
		EntryDate:    entry.Date,
		Amount:       entry.Amount.Rat(),
		SignedAmount: entry.SignedAmount().Rat(),
		Currency:     entry.Currency,
		Direction:    string(entry.Direction),
		Category:     nullString(entry.Category),
		Description:  nullString(entry.Description),
		ExportedTS:   exportedAt,
	}
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
