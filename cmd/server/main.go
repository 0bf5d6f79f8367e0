// Package main runs the reporting service: scheduled profitability
// report generation plus an HTTP surface for health, metrics, status,
// and on-demand rollups.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"laneprofit/internal/cache"
	cachemem "laneprofit/internal/cache/memory"
	cacheredis "laneprofit/internal/cache/redis"
	"laneprofit/internal/config"
	"laneprofit/internal/domain"
	"laneprofit/internal/observability"
	"laneprofit/internal/pipeline"
	"laneprofit/internal/reconcile"
	"laneprofit/internal/reporting"
	"laneprofit/internal/storage"
	chstore "laneprofit/internal/storage/clickhouse"
	"laneprofit/internal/storage/memory"
	"laneprofit/internal/storage/migrations"
	pgstore "laneprofit/internal/storage/postgres"
)

// Server schedules report runs and serves the HTTP endpoints.
type Server struct {
	cfg    config.Config
	gen    *reporting.Generator
	pipe   *pipeline.ProfitPipeline
	filter storage.EventFilter
	logger *log.Logger

	mu             sync.Mutex
	started        time.Time
	lastReportRun  time.Time
	lastSnapshotID string
	reportRunning  bool
	reportRuns     int
	reportErrors   int
}

func main() {
	configPath := flag.String("config", "", "Path to TOML config file")
	port := flag.Int("port", 0, "HTTP listen port (overrides config)")
	interval := flag.Duration("interval", 0, "Report run interval (overrides config)")
	useFixtures := flag.Bool("use-fixtures", false, "Use in-memory demo data instead of the database")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	cfg.Server.Enabled = true
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *interval != 0 {
		cfg.Server.Interval.Duration = *interval
	}
	if *useFixtures {
		cfg.Report.UseFixtures = true
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, cleanup, err := newServer(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Startup failed: %v", err)
	}
	defer cleanup()

	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = server.Run(ctx)
	close(done)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// newServer wires stores, cache and pipeline from the config.
func newServer(ctx context.Context, cfg config.Config, logger *log.Logger) (*Server, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	events, storeCleanup, err := createEventStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanups = append(cleanups, storeCleanup)

	rollupCache, cacheCleanup, err := createCache(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	cleanups = append(cleanups, cacheCleanup)

	filter, err := buildFilter(cfg.Report)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

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
			cleanup()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		cleanups = append(cleanups, func() { _ = chConn.Close() })
		p = p.WithSnapshotStore(chstore.NewRollupSnapshotStore(chConn))
	}

	return &Server{
		cfg:     cfg,
		gen:     gen,
		pipe:    p,
		filter:  filter,
		logger:  logger,
		started: time.Now(),
	}, cleanup, nil
}

// Run starts the HTTP server and the report scheduler, returning when
// the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler: s.routes(),
	}

	go func() {
		s.logger.Printf("HTTP server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	go func() {
		if err := s.runReportScheduler(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("report scheduler: %w", err)
		}
	}()

	go observability.TrackUptime(ctx)

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case err := <-errCh:
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Printf("HTTP shutdown error: %v", err)
	}
	return runErr
}

// runReportScheduler generates a report immediately and then on every tick.
func (s *Server) runReportScheduler(ctx context.Context) error {
	interval := s.cfg.Server.Interval.Duration
	s.logger.Printf("Starting report scheduler (interval: %v)", interval)

	s.runReport(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runReport(ctx)
		}
	}
}

// runReport executes one pipeline run, skipping when one is in flight.
func (s *Server) runReport(ctx context.Context) {
	s.mu.Lock()
	if s.reportRunning {
		s.mu.Unlock()
		s.logger.Println("Report already running, skipping...")
		return
	}
	s.reportRunning = true
	s.mu.Unlock()

	start := time.Now()
	result, err := s.pipe.Run(ctx)

	s.mu.Lock()
	s.reportRunning = false
	s.lastReportRun = time.Now()
	s.reportRuns++
	if err != nil {
		s.reportErrors++
	} else {
		s.lastSnapshotID = result.SnapshotID
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Printf("Report run failed: %v", err)
		return
	}
	s.logger.Printf("Report generated in %v (snapshot %s, %d rollup rows)",
		time.Since(start), result.SnapshotID, len(result.Report.Rollup))
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/rollup", s.handleRollup)

	return mux
}

// StatusResponse is the JSON body of the /status endpoint.
type StatusResponse struct {
	Status         string    `json:"status"`
	Uptime         string    `json:"uptime"`
	LastReportRun  time.Time `json:"last_report_run,omitempty"`
	LastSnapshotID string    `json:"last_snapshot_id,omitempty"`
	ReportRuns     int       `json:"report_runs"`
	ReportErrors   int       `json:"report_errors"`
	ReportRunning  bool      `json:"report_running"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:         "running",
		Uptime:         time.Since(s.started).String(),
		LastReportRun:  s.lastReportRun,
		LastSnapshotID: s.lastSnapshotID,
		ReportRuns:     s.reportRuns,
		ReportErrors:   s.reportErrors,
		ReportRunning:  s.reportRunning,
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleRollup serves an on-demand rollup for the configured query
// window. The dimension defaults to the configured one and can be
// overridden with ?dimension=.
func (s *Server) handleRollup(w http.ResponseWriter, r *http.Request) {
	dim := domain.Dimension(s.cfg.Report.Dimension)
	if v := r.URL.Query().Get("dimension"); v != "" {
		dim = domain.Dimension(v)
	}
	if !dim.IsValid() {
		http.Error(w, fmt.Sprintf("unknown dimension %q", dim), http.StatusBadRequest)
		return
	}

	snap, err := s.gen.Rollup(r.Context(), s.filter, dim, reconcile.RollupOptions{
		MinOrders:      s.cfg.Report.MinOrders,
		NegativeOnly:   s.cfg.Report.NegativeOnly,
		SortWorstFirst: s.cfg.Report.WorstFirst,
	})
	if err != nil {
		s.logger.Printf("Rollup request failed: %v", err)
		http.Error(w, "rollup failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
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
