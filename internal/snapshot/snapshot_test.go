package snapshot

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/akozlov/cashfolio/internal/domain"
	"github.com/akozlov/cashfolio/internal/ledger/inmemory"
)

type fakeObjectStore struct {
	objects map[string][]byte
}

func (f *fakeObjectStore) Upload(ctx context.Context, objectName string, data []byte) error {
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[objectName] = data
	return nil
}

func (f *fakeObjectStore) Download(ctx context.Context, objectName string) ([]byte, error) {
	return f.objects[objectName], nil
}

func TestWriteSnapshot(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()

	if err := store.CreateEntry(ctx, &domain.Entry{
		AccountID: "a1",
		UserID:    "u1",
		Amount:    decimal.RequireFromString("12.50"),
		Currency:  "USD",
		Direction: domain.Outflow,
		Date:      civil.Date{Year: 2024, Month: 3, Day: 1},
		Category:  "rent",
	}); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if err := store.CreateTemplate(ctx, &domain.Template{
		AccountID: "a1",
		UserID:    "u1",
		Amount:    decimal.RequireFromString("12.50"),
		Currency:  "USD",
		Direction: domain.Outflow,
		Frequency: domain.FrequencyMonthly,
		StartDate: civil.Date{Year: 2024, Month: 3, Day: 1},
		Timezone:  "UTC",
	}); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	objects := &fakeObjectStore{}
	asOf := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)

	written, err := New(store, objects, zerolog.Nop()).Write(ctx, asOf)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	wantEntries := "snapshots/2024-03-15T12-30-00Z/entries.csv"
	wantTemplates := "snapshots/2024-03-15T12-30-00Z/templates.csv"
	if len(written) != 2 || written[0] != wantEntries || written[1] != wantTemplates {
		t.Fatalf("written = %v, want [%s %s]", written, wantEntries, wantTemplates)
	}

	records, err := csv.NewReader(strings.NewReader(string(objects.objects[wantEntries]))).ReadAll()
	if err != nil {
		t.Fatalf("parsing entries csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("entry rows = %d, want header plus one", len(records))
	}
	row := records[1]
	if row[4] != "2024-03-01" || row[5] != "12.5" || row[7] != "OUTFLOW" {
		t.Errorf("entry row = %v", row)
	}

	templateRecords, err := csv.NewReader(strings.NewReader(string(objects.objects[wantTemplates]))).ReadAll()
	if err != nil {
		t.Fatalf("parsing templates csv: %v", err)
	}
	if len(templateRecords) != 2 {
		t.Fatalf("template rows = %d, want header plus one", len(templateRecords))
	}
	if templateRecords[1][6] != "MONTHLY" {
		t.Errorf("template row = %v", templateRecords[1])
	}
}
