package main

import (
	"context"
	"flag"
	"time"

	"github.com/akozlov/cashfolio/internal/config"
	infraBQ "github.com/akozlov/cashfolio/internal/infra/bigquery"
	"github.com/akozlov/cashfolio/internal/ledger"
	"github.com/akozlov/cashfolio/internal/ledger/postgres"
	"github.com/akozlov/cashfolio/internal/logger"
	"github.com/akozlov/cashfolio/internal/snapshot"
)

// export pushes the ledger into the analytics sinks: one BigQuery export of
// entries and balance history, and one CSV snapshot to GCS. Both sinks are
// optional; an unset dataset or bucket skips that sink.
func main() {
	timeoutFlag := flag.Duration("timeout", 10*time.Minute, "overall run timeout")
	flag.Parse()

	cfg := config.Load()
	log := logger.New("export")

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}
	if cfg.BigQueryDataset == "" && cfg.GCSBucket == "" {
		log.Fatal().Msg("Nothing to do: set BIGQUERY_DATASET and/or GCS_BUCKET")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Postgres")
	}
	defer store.Close()

	exportedAt := time.Now()

	if cfg.BigQueryDataset != "" {
		if err := exportBigQuery(ctx, store, cfg.BigQueryDataset, exportedAt); err != nil {
			log.Fatal().Err(err).Msg("BigQuery export failed")
		}
		log.Info().Str("dataset", cfg.BigQueryDataset).Msg("BigQuery export finished")
	}

	if cfg.GCSBucket != "" {
		objects := snapshot.NewGCSObjectStore(cfg.GCSBucket)
		written, err := snapshot.New(store, objects, log).Write(ctx, exportedAt)
		if err != nil {
			log.Fatal().Err(err).Msg("Snapshot upload failed")
		}
		log.Info().Strs("objects", written).Str("bucket", cfg.GCSBucket).Msg("Snapshot finished")
	}
}

func exportBigQuery(ctx context.Context, store ledger.Store, dataset string, exportedAt time.Time) error {
	exporter, err := infraBQ.NewExporter(ctx, dataset)
	if err != nil {
		return err
	}
	defer exporter.Close()

	entries, err := store.ListEntries(ctx, ledger.EntryFilter{})
	if err != nil {
		return err
	}
	if err := exporter.InsertEntries(ctx, entries, exportedAt); err != nil {
		return err
	}

	// Balance history is keyed per account, so walk accounts per user via the
	// entries we already hold.
	currencies := make(map[string]string)
	seen := make(map[string]string) // accountID -> userID
	for _, entry := range entries {
		seen[entry.AccountID] = entry.UserID
	}

	for accountID, userID := range seen {
		account, err := store.GetAccount(ctx, accountID, userID)
		if err != nil {
			return err
		}
		currencies[accountID] = account.Currency

		history, err := store.BalanceHistory(ctx, accountID, userID)
		if err != nil {
			return err
		}
		if err := exporter.InsertBalances(ctx, history, currencies, exportedAt); err != nil {
			return err
		}
	}

	return nil
}
