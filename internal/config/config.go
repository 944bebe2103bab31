package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/i474232898/forecast-text-service/internal/store"
	"github.com/i474232898/forecast-text-service/internal/weather/providers"
)

type AppConfig struct {
	Port string

	// OpenMeteoURL is the full upstream forecast URL, query included.
	OpenMeteoURL string
	// UpstreamTimeout bounds outbound calls (0 = no client timeout).
	UpstreamTimeout time.Duration

	StoreDriver      string
	SQLitePath       string
	DatabaseURL      string
	StoreAutoMigrate bool

	// CaptureInterval controls the scheduled forecast capture (0 = disabled).
	CaptureInterval time.Duration

	HistoryDefaultLimit int
}

// Load reads configuration from environment with sensible defaults.
// Callers load any .env file beforehand.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.OpenMeteoURL = getenvDefault("OPENMETEO_API_URL", providers.DefaultOpenMeteoURL)

	if cfg.UpstreamTimeout, err = getenvDuration("UPSTREAM_HTTP_TIMEOUT", 0); err != nil {
		return nil, err
	}

	cfg.StoreDriver = getenvDefault("STORE_DRIVER", store.DriverMemory)
	switch cfg.StoreDriver {
	case store.DriverMemory, store.DriverSQLite, store.DriverPostgres:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: want %s, %s or %s",
			cfg.StoreDriver, store.DriverMemory, store.DriverSQLite, store.DriverPostgres)
	}
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "forecasts.db")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.StoreDriver == store.DriverPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", store.DriverPostgres)
	}

	if cfg.StoreAutoMigrate, err = getenvBool("STORE_AUTO_MIGRATE", true); err != nil {
		return nil, err
	}

	if cfg.CaptureInterval, err = getenvDuration("FORECAST_CAPTURE_INTERVAL", 0); err != nil {
		return nil, err
	}

	cfg.HistoryDefaultLimit = getenvInt("HISTORY_DEFAULT_LIMIT", 20)
	if cfg.HistoryDefaultLimit <= 0 {
		cfg.HistoryDefaultLimit = 20
	}

	return cfg, nil
}

// StoreDSN returns the connection string for the configured driver.
func (c *AppConfig) StoreDSN() string {
	switch c.StoreDriver {
	case store.DriverSQLite:
		return c.SQLitePath
	case store.DriverPostgres:
		return c.DatabaseURL
	default:
		return ""
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}
