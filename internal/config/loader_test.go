package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Postgres.Port != 5432 {
		t.Errorf("Postgres.Port = %d, want 5432", cfg.Postgres.Port)
	}
	if cfg.Report.Dimension != "lane" {
		t.Errorf("Report.Dimension = %q, want lane", cfg.Report.Dimension)
	}
	if !cfg.Report.WorstFirst {
		t.Error("Report.WorstFirst should default to true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_TOMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

[postgres]
host = "db.internal"
port = 5433

[redis]
enabled = true
addr = "redis.internal:6379"
ttl = "5m"

[report]
start_date = "2024-01-01"
end_date = "2024-03-31"
dimension = "customer"
min_orders = 3
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Postgres.Host != "db.internal" || cfg.Postgres.Port != 5433 {
		t.Errorf("postgres not overridden: %+v", cfg.Postgres)
	}
	if !cfg.Redis.Enabled || cfg.Redis.TTL.Duration != 5*time.Minute {
		t.Errorf("redis not overridden: %+v", cfg.Redis)
	}
	if cfg.Report.Dimension != "customer" || cfg.Report.MinOrders != 3 {
		t.Errorf("report not overridden: %+v", cfg.Report)
	}

	// Untouched sections keep defaults.
	if cfg.Report.OutputDir != "reports" {
		t.Errorf("OutputDir = %q, want default", cfg.Report.OutputDir)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("config should validate: %v", err)
	}
}

func TestLoad_EnvOverridesTOML(t *testing.T) {
	path := writeConfig(t, `
[postgres]
host = "from-toml"
`)

	t.Setenv("LANEPROFIT_POSTGRES_HOST", "from-env")
	t.Setenv("LANEPROFIT_REPORT_CUSTOMERS", "custA, custB")
	t.Setenv("LANEPROFIT_REPORT_MIN_ORDERS", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Postgres.Host != "from-env" {
		t.Errorf("Postgres.Host = %q, want from-env", cfg.Postgres.Host)
	}
	if len(cfg.Report.Customers) != 2 || cfg.Report.Customers[1] != "custB" {
		t.Errorf("Report.Customers = %v, want [custA custB]", cfg.Report.Customers)
	}
	if cfg.Report.MinOrders != 7 {
		t.Errorf("Report.MinOrders = %d, want 7", cfg.Report.MinOrders)
	}
}

func TestReportConfig_DateMillis(t *testing.T) {
	r := ReportConfig{StartDate: "2024-01-01", EndDate: "2024-01-01"}

	start, err := r.StartMillis()
	if err != nil {
		t.Fatalf("StartMillis failed: %v", err)
	}
	end, err := r.EndMillis()
	if err != nil {
		t.Fatalf("EndMillis failed: %v", err)
	}

	if start != 1704067200000 {
		t.Errorf("start = %d, want 1704067200000", start)
	}
	// End of day covers every timestamp on the date.
	if end-start != 24*60*60*1000-1 {
		t.Errorf("end-start = %d, want 86399999", end-start)
	}

	empty := ReportConfig{}
	if ms, _ := empty.StartMillis(); ms != 0 {
		t.Errorf("empty StartMillis = %d, want 0", ms)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "loud"
	cfg.Report.Dimension = "continent"
	cfg.Report.StartDate = "01/02/2024"
	cfg.Server.Enabled = true
	cfg.Server.Port = 99999

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}

	msg := err.Error()
	for _, want := range []string{"log_level", "dimension", "start_date", "port"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error should mention %q, got: %s", want, msg)
		}
	}
}
