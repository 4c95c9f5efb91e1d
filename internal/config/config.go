package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// SnapshotPath is where the file storage driver keeps the portfolio snapshot.
	SnapshotPath string
	// PriceAPIURL is the base URL of the CoinGecko-compatible price API.
	PriceAPIURL string
	// PriceTimeout bounds every external price lookup.
	PriceTimeout time.Duration
	// Driver selects the storage backend: file, memory, sqlite, postgres.
	Driver string
	DSN    string
	// RefreshInterval is the worker schedule: integer seconds or a cron expression.
	RefreshInterval string
	Port            string
}

// FromEnv builds a Config from environment variables, with sane defaults.
func FromEnv() Config {
	cfg := Config{
		SnapshotPath:    getenv("CRYPTOFOLIO_SNAPSHOT_PATH", "crypto_portfolios.json"),
		PriceAPIURL:     getenv("CRYPTOFOLIO_PRICE_API_URL", "https://api.coingecko.com/api/v3"),
		PriceTimeout:    8 * time.Second,
		Driver:          getenv("CRYPTOFOLIO_DB_DRIVER", "file"),
		DSN:             os.Getenv("CRYPTOFOLIO_DB_DSN"),
		RefreshInterval: getenv("CRYPTOFOLIO_REFRESH_INTERVAL", "300"),
		Port:            getenv("PORT", "8000"),
	}
	if raw := os.Getenv("CRYPTOFOLIO_PRICE_TIMEOUT_SECONDS"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			cfg.PriceTimeout = time.Duration(v) * time.Second
		}
	}
	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
