// Package config defines the top-level configuration for the reconciliation
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"laneprofit/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by LANEPROFIT_* environment variables.
type Config struct {
	Postgres   PostgresConfig   `toml:"postgres"`
	Clickhouse ClickhouseConfig `toml:"clickhouse"`
	Redis      RedisConfig      `toml:"redis"`
	Report     ReportConfig     `toml:"report"`
	Server     ServerConfig     `toml:"server"`
	LogLevel   string           `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters for the event store.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// DSNString returns the explicit DSN when set, otherwise one assembled from
// the individual fields.
func (p PostgresConfig) DSNString() string {
	if strings.TrimSpace(p.DSN) != "" {
		return p.DSN
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode, p.PoolMaxConns, p.PoolMinConns,
	)
}

// ClickhouseConfig holds ClickHouse connection parameters for snapshot
// persistence. Snapshots are skipped entirely when disabled.
type ClickhouseConfig struct {
	Enabled bool   `toml:"enabled"`
	DSN     string `toml:"dsn"`
}

// RedisConfig holds Redis connection parameters for the rollup cache.
// The in-process cache is used when disabled.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	TTL        duration `toml:"ttl"`
}

// ReportConfig holds the report query and output parameters.
type ReportConfig struct {
	OutputDir string `toml:"output_dir"`

	// Query window, inclusive calendar dates in YYYY-MM-DD. Empty means
	// unbounded on that side.
	StartDate string `toml:"start_date"`
	EndDate   string `toml:"end_date"`

	Categories       []string `toml:"categories"`
	Customers        []string `toml:"customers"`
	ExcludeCustomers []string `toml:"exclude_customers"`
	Lanes            []string `toml:"lanes"`
	IncludeCanceled  bool     `toml:"include_canceled"`
	RequireMarkets   bool     `toml:"require_markets"`

	Dimension    string `toml:"dimension"`
	MinOrders    int    `toml:"min_orders"`
	NegativeOnly bool   `toml:"negative_only"`
	WorstFirst   bool   `toml:"worst_first"`

	// UseFixtures runs against generated demo data instead of Postgres.
	UseFixtures bool `toml:"use_fixtures"`
}

// StartMillis returns the start of StartDate in Unix ms, or 0 when unset.
func (r ReportConfig) StartMillis() (int64, error) {
	return dateMillis(r.StartDate, false)
}

// EndMillis returns the end of EndDate in Unix ms, or 0 when unset.
func (r ReportConfig) EndMillis() (int64, error) {
	return dateMillis(r.EndDate, true)
}

func dateMillis(date string, endOfDay bool) (int64, error) {
	if strings.TrimSpace(date) == "" {
		return 0, nil
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", date, err)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return t.UnixMilli(), nil
}

// ServerConfig holds HTTP server parameters for scheduled report runs.
type ServerConfig struct {
	Enabled  bool     `toml:"enabled"`
	Port     int      `toml:"port"`
	Interval duration `toml:"interval"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "laneprofit",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Clickhouse: ClickhouseConfig{
			Enabled: false,
			DSN:     "clickhouse://localhost:9000/laneprofit",
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			TTL:        duration{10 * time.Minute},
		},
		Report: ReportConfig{
			OutputDir:       "reports",
			IncludeCanceled: true,
			Dimension:       string(domain.DimensionLane),
			MinOrders:       1,
			WorstFirst:      true,
		},
		Server: ServerConfig{
			Enabled:  false,
			Port:     8080,
			Interval: duration{time.Hour},
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for inconsistencies and returns a single
// error listing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Postgres is only reachable when the fixture mode is off.
	if !c.Report.UseFixtures {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 {
				errs = append(errs, "postgres: port must be positive")
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
	}

	if c.Clickhouse.Enabled && strings.TrimSpace(c.Clickhouse.DSN) == "" {
		errs = append(errs, "clickhouse: dsn must be set when enabled")
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.TTL.Duration < 0 {
			errs = append(errs, "redis: ttl must not be negative")
		}
	}

	if c.Report.OutputDir == "" {
		errs = append(errs, "report: output_dir must not be empty")
	}
	if !domain.Dimension(c.Report.Dimension).IsValid() {
		errs = append(errs, fmt.Sprintf("report: unknown dimension %q (valid: lane, market, customer, carrier)", c.Report.Dimension))
	}
	if c.Report.MinOrders < 0 {
		errs = append(errs, "report: min_orders must not be negative")
	}
	if _, err := c.Report.StartMillis(); err != nil {
		errs = append(errs, "report: start_date must be YYYY-MM-DD")
	}
	if _, err := c.Report.EndMillis(); err != nil {
		errs = append(errs, "report: end_date must be YYYY-MM-DD")
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port %d out of range", c.Server.Port))
		}
		if c.Server.Interval.Duration <= 0 {
			errs = append(errs, "server: interval must be positive")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
