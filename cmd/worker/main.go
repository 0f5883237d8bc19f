package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akozlov/cashfolio/internal/balance"
	"github.com/akozlov/cashfolio/internal/cashflow"
	"github.com/akozlov/cashfolio/internal/config"
	"github.com/akozlov/cashfolio/internal/exchange"
	"github.com/akozlov/cashfolio/internal/jobs"
	jobsmem "github.com/akozlov/cashfolio/internal/jobs/inmemory"
	"github.com/akozlov/cashfolio/internal/ledger"
	ledgermem "github.com/akozlov/cashfolio/internal/ledger/inmemory"
	"github.com/akozlov/cashfolio/internal/ledger/postgres"
	"github.com/akozlov/cashfolio/internal/logger"
	"github.com/akozlov/cashfolio/internal/notify"
	"github.com/akozlov/cashfolio/internal/scheduler"
)

// The worker runs scheduled materialization on its own, for deployments where
// the api binary should not carry background work. Point it at the same
// Postgres ledger as the api; occurrence uniqueness makes concurrent runs from
// both binaries safe.
func main() {
	cfg := config.Load()
	log := logger.New("worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store ledger.Store
	if cfg.DatabaseURL != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Postgres")
		}
		defer pgStore.Close()
		store = pgStore
	} else {
		store = ledgermem.NewStore()
		log.Warn().Msg("No DATABASE_URL configured, using in-memory ledger")
	}

	rates, err := exchange.ParseFixedRates(cfg.ExchangeRates)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid EXCHANGE_RATES")
	}
	if cfg.ExchangeRates == "" {
		log.Warn().Msg("No EXCHANGE_RATES configured, cross-currency templates will fail to materialize")
	}
	balances := balance.NewSynchronizer(store, store, rates, log)
	notifier := notify.NewLogNotifier(log)
	svc := cashflow.NewService(store, balances, rates, notifier, log)

	jobStore := jobsmem.NewStore()
	jobQueue := jobsmem.NewQueue(cfg.QueueSize, jobStore)

	handler := func(ctx context.Context, job jobs.Job) error {
		matJob, ok := job.(*jobs.MaterializeJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		asOf := time.Now()
		if matJob.AsOf != nil {
			asOf = *matJob.AsOf
		}

		log.Info().
			Str("job_id", matJob.JobID).
			Str("reason", matJob.Reason).
			Time("as_of", asOf).
			Msg("Processing materialization job")

		return svc.MaterializeDue(ctx, asOf)
	}

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	sched := scheduler.New(jobQueue, log)
	go sched.Run(ctx)

	// Catch up on anything that became due while the worker was down.
	if err := sched.TriggerNow(ctx, nil, "startup"); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue startup materialization")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}
