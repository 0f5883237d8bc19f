// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the settings shared by the api, worker and export binaries.
type Config struct {
	// Port is the HTTP listen port for the api binary.
	Port string

	// DatabaseURL is the Postgres DSN. Empty selects the in-memory ledger,
	// which is what local development and tests use.
	DatabaseURL string

	// BaseCurrency is the default reporting currency.
	BaseCurrency string

	// ExchangeRates seeds the fixed rate table, as a comma-separated list of
	// FROM/TO=rate pairs ("EUR/USD=1.10,GBP/USD=1.27"). Empty means no
	// cross-currency conversion is available.
	ExchangeRates string

	// QueueSize bounds the in-memory materialization job queue.
	QueueSize int

	// GCSBucket receives ledger snapshot exports. Empty disables snapshots.
	GCSBucket string

	// BigQueryDataset receives analytics exports. Empty disables the export
	// binary's BigQuery sink. The project is taken from application default
	// credentials.
	BigQueryDataset string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first if present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		BaseCurrency:    getEnv("BASE_CURRENCY", "USD"),
		ExchangeRates:   getEnv("EXCHANGE_RATES", ""),
		QueueSize:       getEnvInt("QUEUE_SIZE", 100),
		GCSBucket:       getEnv("GCS_BUCKET", ""),
		BigQueryDataset: getEnv("BIGQUERY_DATASET", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
