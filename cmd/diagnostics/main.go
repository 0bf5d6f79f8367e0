// Package main inspects the shipment event data: it lists the known
// customers and lanes and scans the query window for leg structure
// problems, without writing any report files.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"laneprofit/internal/config"
	"laneprofit/internal/domain"
	"laneprofit/internal/pipeline"
	"laneprofit/internal/reconcile"
	"laneprofit/internal/reporting"
	"laneprofit/internal/storage"
	"laneprofit/internal/storage/memory"
	"laneprofit/internal/storage/migrations"
	pgstore "laneprofit/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	useFixtures := flag.Bool("use-fixtures", false, "Use in-memory demo data instead of the database")
	customer := flag.String("customer", "", "Restrict the lane listing to one customer")
	quality := flag.Bool("quality", true, "Scan the configured query window for leg structure problems")
	flag.Parse()

	logger := log.New(os.Stdout, "[diagnostics] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if *postgresDSN != "" {
		cfg.Postgres.DSN = *postgresDSN
	}
	if *useFixtures {
		cfg.Report.UseFixtures = true
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("%v", err)
	}

	ctx := context.Background()

	events, cleanup, err := createEventStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Create event store: %v", err)
	}
	defer cleanup()

	customers, err := events.ListCustomers(ctx)
	if err != nil {
		logger.Fatalf("List customers: %v", err)
	}
	fmt.Printf("Customers (%d):\n", len(customers))
	for _, c := range customers {
		fmt.Printf("  - %s\n", c)
	}

	lanes, err := events.ListLanes(ctx, *customer)
	if err != nil {
		logger.Fatalf("List lanes: %v", err)
	}
	if *customer != "" {
		fmt.Printf("Lanes for %s (%d):\n", *customer, len(lanes))
	} else {
		fmt.Printf("Lanes (%d):\n", len(lanes))
	}
	for _, l := range lanes {
		fmt.Printf("  - %s\n", l)
	}

	if *quality {
		if err := scanQuality(ctx, events, cfg.Report); err != nil {
			logger.Fatalf("Quality scan: %v", err)
		}
	}
}

// scanQuality reconciles the configured window and prints every data
// quality finding.
func scanQuality(ctx context.Context, events storage.ShipmentEventStore, r config.ReportConfig) error {
	start, err := r.StartMillis()
	if err != nil {
		return err
	}
	end, err := r.EndMillis()
	if err != nil {
		return err
	}

	categories := make([]domain.Category, len(r.Categories))
	for i, c := range r.Categories {
		categories[i] = domain.Category(c)
	}
	filter := storage.EventFilter{
		Start:            start,
		End:              end,
		Categories:       categories,
		Customers:        r.Customers,
		ExcludeCustomers: r.ExcludeCustomers,
		Lanes:            r.Lanes,
		IncludeCanceled:  r.IncludeCanceled,
		RequireMarkets:   r.RequireMarkets,
	}

	gen := reporting.NewGenerator(events, reconcile.NewEngine())
	orders, qualityReport, err := gen.Orders(ctx, filter)
	if err != nil {
		return err
	}

	fmt.Printf("\nQuality scan over %d order(s):\n", len(orders))
	msgs := qualityReport.Errors()
	if len(msgs) == 0 {
		fmt.Println("  no leg structure problems found")
		return nil
	}
	for _, msg := range msgs {
		fmt.Printf("  - %s\n", msg)
	}
	fmt.Printf("  %d order(s) without a primary leg, %d with multiple primary legs\n",
		qualityReport.MissingPrimaryOrders(), qualityReport.MultiPrimaryOrders())
	return nil
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
