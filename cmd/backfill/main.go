package main

import (
	"context"
	"flag"
	"time"

	"github.com/akozlov/cashfolio/internal/balance"
	"github.com/akozlov/cashfolio/internal/cashflow"
	"github.com/akozlov/cashfolio/internal/config"
	"github.com/akozlov/cashfolio/internal/exchange"
	"github.com/akozlov/cashfolio/internal/ledger/postgres"
	"github.com/akozlov/cashfolio/internal/logger"
	"github.com/akozlov/cashfolio/internal/notify"
)

// backfill runs one synchronous materialization pass and exits. With -as-of
// it replays the ledger as of a past instant, which is how historical gaps
// are repaired after an outage.
func main() {
	asOfFlag := flag.String("as-of", "", "reference instant as RFC 3339, default now")
	timeoutFlag := flag.Duration("timeout", 10*time.Minute, "overall run timeout")
	flag.Parse()

	cfg := config.Load()
	log := logger.New("backfill")

	asOf := time.Now()
	if *asOfFlag != "" {
		parsed, err := time.Parse(time.RFC3339, *asOfFlag)
		if err != nil {
			log.Fatal().Err(err).Str("as_of", *asOfFlag).Msg("Invalid -as-of, expected RFC 3339")
		}
		asOf = parsed
	}

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required, a backfill against an in-memory ledger would be lost on exit")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Postgres")
	}
	defer store.Close()

	rates, err := exchange.ParseFixedRates(cfg.ExchangeRates)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid EXCHANGE_RATES")
	}
	if cfg.ExchangeRates == "" {
		log.Warn().Msg("No EXCHANGE_RATES configured, cross-currency templates will fail to materialize")
	}
	balances := balance.NewSynchronizer(store, store, rates, log)
	svc := cashflow.NewService(store, balances, rates, notify.NewLogNotifier(log), log)

	log.Info().Time("as_of", asOf).Msg("Starting backfill run")

	if err := svc.MaterializeDue(ctx, asOf); err != nil {
		log.Fatal().Err(err).Msg("Backfill run failed")
	}

	log.Info().Msg("Backfill run finished")
}
