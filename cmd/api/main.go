package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/akozlov/cashfolio/internal/api/handlers"
	"github.com/akozlov/cashfolio/internal/api/middleware"
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

func main() {
	cfg := config.Load()
	log := logger.New("api")

	ctx := context.Background()

	var store ledger.Store
	if cfg.DatabaseURL != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Postgres")
		}
		defer pgStore.Close()
		store = pgStore
		log.Info().Msg("Using Postgres ledger")
	} else {
		store = ledgermem.NewStore()
		log.Warn().Msg("No DATABASE_URL configured, using in-memory ledger")
	}

	rates, err := exchange.ParseFixedRates(cfg.ExchangeRates)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid EXCHANGE_RATES")
	}
	if cfg.ExchangeRates == "" {
		log.Warn().Msg("No EXCHANGE_RATES configured, cross-currency entries will be rejected")
	}
	balances := balance.NewSynchronizer(store, store, rates, log)
	notifier := notify.NewLogNotifier(log)
	svc := cashflow.NewService(store, balances, rates, notifier, log)

	// Materialization jobs run in-process. Runs are idempotent, so losing
	// queued jobs on restart only delays work until the next scheduled run.
	jobStore := jobsmem.NewStore()
	jobQueue := jobsmem.NewQueue(cfg.QueueSize, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
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

	go func() {
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	sched := scheduler.New(jobQueue, log)
	go sched.Run(workerCtx)

	entriesHandler := handlers.NewEntriesHandler(svc, log)
	templatesHandler := handlers.NewTemplatesHandler(svc, log)
	accountsHandler := handlers.NewAccountsHandler(svc, log)
	materializeHandler := handlers.NewMaterializeHandler(sched, jobStore, log)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.UserID)

		r.Route("/entries", func(r chi.Router) {
			r.Post("/", entriesHandler.Create)
			r.Get("/", entriesHandler.List)
			r.Get("/{id}", entriesHandler.Get)
			r.Put("/{id}", entriesHandler.Update)
			r.Delete("/{id}", entriesHandler.Delete)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Post("/", templatesHandler.Create)
			r.Get("/", templatesHandler.List)
			r.Get("/{id}", templatesHandler.Get)
			r.Put("/{id}", templatesHandler.Update)
			r.Delete("/{id}", templatesHandler.Delete)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", accountsHandler.Create)
			r.Get("/", accountsHandler.List)
			r.Get("/cash-details", accountsHandler.CashDetails)
			r.Get("/{id}", accountsHandler.Get)
			r.Put("/{id}", accountsHandler.Update)
			r.Delete("/{id}", accountsHandler.Delete)
		})

		r.Route("/materialize", func(r chi.Router) {
			r.Post("/", materializeHandler.Trigger)
			r.Get("/jobs", materializeHandler.ListJobs)
			r.Get("/jobs/{id}", materializeHandler.GetJob)
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
