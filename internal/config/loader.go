package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies LANEPROFIT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return cfg, nil
}

// applyEnvOverrides reads well-known LANEPROFIT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject credentials at deploy time without touching the
// TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Postgres.DSN, "LANEPROFIT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "LANEPROFIT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "LANEPROFIT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "LANEPROFIT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "LANEPROFIT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "LANEPROFIT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "LANEPROFIT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "LANEPROFIT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "LANEPROFIT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "LANEPROFIT_POSTGRES_RUN_MIGRATIONS")

	setBool(&cfg.Clickhouse.Enabled, "LANEPROFIT_CLICKHOUSE_ENABLED")
	setStr(&cfg.Clickhouse.DSN, "LANEPROFIT_CLICKHOUSE_DSN")

	setBool(&cfg.Redis.Enabled, "LANEPROFIT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "LANEPROFIT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "LANEPROFIT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "LANEPROFIT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "LANEPROFIT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "LANEPROFIT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "LANEPROFIT_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.TTL, "LANEPROFIT_REDIS_TTL")

	setStr(&cfg.Report.OutputDir, "LANEPROFIT_REPORT_OUTPUT_DIR")
	setStr(&cfg.Report.StartDate, "LANEPROFIT_REPORT_START_DATE")
	setStr(&cfg.Report.EndDate, "LANEPROFIT_REPORT_END_DATE")
	setStringSlice(&cfg.Report.Categories, "LANEPROFIT_REPORT_CATEGORIES")
	setStringSlice(&cfg.Report.Customers, "LANEPROFIT_REPORT_CUSTOMERS")
	setStringSlice(&cfg.Report.ExcludeCustomers, "LANEPROFIT_REPORT_EXCLUDE_CUSTOMERS")
	setStringSlice(&cfg.Report.Lanes, "LANEPROFIT_REPORT_LANES")
	setBool(&cfg.Report.IncludeCanceled, "LANEPROFIT_REPORT_INCLUDE_CANCELED")
	setBool(&cfg.Report.RequireMarkets, "LANEPROFIT_REPORT_REQUIRE_MARKETS")
	setStr(&cfg.Report.Dimension, "LANEPROFIT_REPORT_DIMENSION")
	setInt(&cfg.Report.MinOrders, "LANEPROFIT_REPORT_MIN_ORDERS")
	setBool(&cfg.Report.NegativeOnly, "LANEPROFIT_REPORT_NEGATIVE_ONLY")
	setBool(&cfg.Report.WorstFirst, "LANEPROFIT_REPORT_WORST_FIRST")
	setBool(&cfg.Report.UseFixtures, "LANEPROFIT_REPORT_USE_FIXTURES")

	setBool(&cfg.Server.Enabled, "LANEPROFIT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "LANEPROFIT_SERVER_PORT")
	setDuration(&cfg.Server.Interval, "LANEPROFIT_SERVER_INTERVAL")

	setStr(&cfg.LogLevel, "LANEPROFIT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
