// Package main generates a one-shot profitability report: it fetches
// shipment events, reconciles each order, rolls the results up by the
// configured dimension, and writes CSV and Markdown files.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"laneprofit/internal/cache"
	cachemem "laneprofit/internal/cache/memory"
	cacheredis "laneprofit/internal/cache/redis"
	"laneprofit/internal/config"
	"laneprofit/internal/domain"
	"laneprofit/internal/pipeline"
	"laneprofit/internal/reconcile"
	"laneprofit/internal/reporting"
	"laneprofit/internal/storage"
	chstore "laneprofit/internal/storage/clickhouse"
	"laneprofit/internal/storage/memory"
	"laneprofit/internal/storage/migrations"
	pgstore "laneprofit/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file")
	outputDir := flag.String("output-dir", "", "Output directory for generated files (overrides config)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	useFixtures := flag.Bool("use-fixtures", false, "Use in-memory demo data instead of the database")
	dimension := flag.String("dimension", "", "Rollup dimension: lane, market, customer, carrier (overrides config)")
	startDate := flag.String("start-date", "", "Window start, YYYY-MM-DD (overrides config)")
	endDate := flag.String("end-date", "", "Window end, YYYY-MM-DD (overrides config)")
	flag.Parse()

	logger := log.New(os.Stdout, "[report] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	applyFlags(&cfg, *outputDir, *postgresDSN, *useFixtures, *dimension, *startDate, *endDate)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("%v", err)
	}

	ctx := context.Background()

	events, cleanup, err := createEventStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Create event store: %v", err)
	}
	defer cleanup()

	filter, err := buildFilter(cfg.Report)
	if err != nil {
		logger.Fatalf("Build filter: %v", err)
	}

	rollupCache, cacheCleanup, err := createCache(ctx, cfg)
	if err != nil {
		logger.Fatalf("Create cache: %v", err)
	}
	defer cacheCleanup()

	gen := reporting.NewGenerator(events, reconcile.NewEngine()).WithCache(rollupCache)

	p := pipeline.NewProfitPipeline(
		gen,
		cfg.Report.OutputDir,
		filter,
		domain.Dimension(cfg.Report.Dimension),
		reconcile.RollupOptions{
			MinOrders:      cfg.Report.MinOrders,
			NegativeOnly:   cfg.Report.NegativeOnly,
			SortWorstFirst: cfg.Report.WorstFirst,
		},
	)

	if cfg.Report.UseFixtures {
		p = p.WithDataSource("fixtures")
	} else {
		p = p.WithDBSource(cfg.Postgres.DSNString())
	}

	if cfg.Clickhouse.Enabled {
		chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.Clickhouse.DSN)
		if err != nil {
			logger.Fatalf("Connect to clickhouse: %v", err)
		}
		defer chConn.Close()
		p = p.WithSnapshotStore(chstore.NewRollupSnapshotStore(chConn))
	}

	result, err := p.Run(ctx)
	if err != nil {
		logger.Fatalf("Pipeline run failed: %v", err)
	}

	fmt.Printf("Report generated (snapshot %s):\n", result.SnapshotID)
	for _, f := range result.Files {
		fmt.Printf("  - %s\n", f)
	}
}

// applyFlags overrides config values with explicitly set flags.
func applyFlags(cfg *config.Config, outputDir, postgresDSN string, useFixtures bool, dimension, startDate, endDate string) {
	if outputDir != "" {
		cfg.Report.OutputDir = outputDir
	}
	if postgresDSN != "" {
		cfg.Postgres.DSN = postgresDSN
	}
	if useFixtures {
		cfg.Report.UseFixtures = true
	}
	if dimension != "" {
		cfg.Report.Dimension = dimension
	}
	if startDate != "" {
		cfg.Report.StartDate = startDate
	}
	if endDate != "" {
		cfg.Report.EndDate = endDate
	}
}

// buildFilter converts the report config into the typed store filter.
func buildFilter(r config.ReportConfig) (storage.EventFilter, error) {
	start, err := r.StartMillis()
	if err != nil {
		return storage.EventFilter{}, err
	}
	end, err := r.EndMillis()
	if err != nil {
		return storage.EventFilter{}, err
	}

	categories := make([]domain.Category, len(r.Categories))
	for i, c := range r.Categories {
		categories[i] = domain.Category(c)
	}

	return storage.EventFilter{
		Start:            start,
		End:              end,
		Categories:       categories,
		Customers:        r.Customers,
		ExcludeCustomers: r.ExcludeCustomers,
		Lanes:            r.Lanes,
		IncludeCanceled:  r.IncludeCanceled,
		RequireMarkets:   r.RequireMarkets,
	}, nil
}

// createEventStore returns the fixture-backed memory store or a Postgres
// store, running migrations when configured.
func createEventStore(ctx context.Context, cfg config.Config, logger *log.Logger) (storage.ShipmentEventStore, func(), error) {
	if cfg.Report.UseFixtures {
		store := memory.NewShipmentEventStore()
		if err := pipeline.LoadFixtures(ctx, store); err != nil {
			return nil, nil, fmt.Errorf("load fixtures: %w", err)
		}
		logger.Println("Running with in-memory fixture data")
		return store, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSNString())
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if cfg.Postgres.RunMigrations {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return pgstore.NewShipmentEventStore(pool), pool.Close, nil
}

// createCache returns the Redis-backed cache when enabled, otherwise an
// in-process one.
func createCache(ctx context.Context, cfg config.Config) (cache.RollupCache, func(), error) {
	if !cfg.Redis.Enabled {
		return cachemem.NewRollupCache(cfg.Redis.TTL.Duration), func() {}, nil
	}

	client, err := cacheredis.New(ctx, cacheredis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	return cacheredis.NewRollupCache(client, cfg.Redis.TTL.Duration), func() { _ = client.Close() }, nil
}
