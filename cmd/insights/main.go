package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aevon-lab/storefront-insights/internal/aggregation"
	corecfg "github.com/aevon-lab/storefront-insights/internal/core/config"
	"github.com/aevon-lab/storefront-insights/internal/core/partition"
	"github.com/aevon-lab/storefront-insights/internal/core/storage"
	"github.com/aevon-lab/storefront-insights/internal/core/storage/memory"
	"github.com/aevon-lab/storefront-insights/internal/core/storage/postgres"
	"github.com/aevon-lab/storefront-insights/internal/ingestion"
	"github.com/aevon-lab/storefront-insights/internal/migrations"
	"github.com/aevon-lab/storefront-insights/internal/projection"
	"github.com/aevon-lab/storefront-insights/internal/server"
	"github.com/aevon-lab/storefront-insights/internal/viewstore"
)

// backend is everything the process needs from a storage implementation.
type backend interface {
	storage.EventStore
	storage.DimensionStore
	storage.ViewStateStore
	partition.Catalog
}

func main() {
	configPath := flag.String("config", "insights.yaml", "Path to configuration file")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	slog.SetDefault(newLogger(cfg.Log))
	slog.Info("Loaded config",
		"database", cfg.Database.Type,
		"refresh_interval", cfg.Refresh.Interval,
		"refresh_timeout", cfg.Refresh.Timeout,
		"definitions_dir", cfg.Refresh.DefinitionsDir,
	)
	for _, def := range cfg.Definitions.List() {
		slog.Debug("View definition", "view", def.View, "fingerprint", def.Fingerprint)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize Storage
	var (
		store  backend
		health server.HealthChecker
	)
	switch cfg.Database.Type {
	case "memory":
		slog.Warn("Using in-memory storage; events and view state are lost on exit")
		store = memory.NewStore()
	default:
		dbAdapter, err := postgres.NewAdapter(ctx, postgres.Options{
			DSN:            cfg.Database.DSN,
			MaxOpenConns:   cfg.Database.MaxOpenConns,
			MaxIdleConns:   cfg.Database.MaxIdleConns,
			ConnectTimeout: cfg.Database.ConnectTimeoutDuration(),
		})
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer dbAdapter.Close()

		// 3.1. Run Database Migrations
		if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
			slog.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}
		if err := dbAdapter.Prepare(ctx); err != nil {
			slog.Error("Failed to prepare database statements", "error", err)
			os.Exit(1)
		}
		store, health = dbAdapter, dbAdapter
	}

	// 4. Initialize Partition Manager
	partitions := partition.NewManager(store)
	if err := partitions.Load(ctx); err != nil {
		slog.Error("Failed to load partitions", "error", err)
		os.Exit(1)
	}
	if _, err := partitions.EnsureMonthly(ctx,
		cfg.Partitions.FirstMonthTime(),
		time.Now().UTC(),
		cfg.Partitions.MonthsAhead,
	); err != nil {
		slog.Error("Failed to create partitions", "error", err)
		os.Exit(1)
	}

	// 5. Initialize Aggregation Engine + View Store
	engineOpts := aggregation.DefaultEngineOptions()
	if cfg.Refresh.WorkerCount > 0 {
		engineOpts.WorkerCount = cfg.Refresh.WorkerCount
	}
	engine := aggregation.NewEngine(store, store, partitions, engineOpts)
	views := viewstore.New(engine, cfg.Definitions, store, viewstore.Options{
		Timeout: cfg.Refresh.TimeoutDuration(),
		Context: ctx,
	})
	if err := views.Restore(ctx); err != nil {
		slog.Error("Failed to restore view state", "error", err)
		os.Exit(1)
	}

	// Partitions are maintained on every tick even when scheduled refreshes are off.
	var refresher aggregation.Refresher
	if cfg.Refresh.Enabled {
		refresher = views
	}
	scheduler := aggregation.NewScheduler(cfg.Refresh.IntervalDuration(), refresher, cfg.Refresh.RunOnStart).
		WithPartitions(partitions, cfg.Partitions.FirstMonthTime(), cfg.Partitions.MonthsAhead)

	slog.Info("Aggregation engine initialized",
		"interval", cfg.Refresh.Interval,
		"enabled", cfg.Refresh.Enabled,
		"worker_count", cfg.Refresh.WorkerCount,
		"partitions", len(partitions.All()),
	)

	// 6. Initialize Ingestion and Projection
	ingestionSvc := ingestion.NewService(store, partitions, cfg.Server.MaxBodySizeMB)
	projectionSvc := projection.NewService(views, cfg.Query.DefaultLimit)

	// 7. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), health, cfg.Server.Mode)
	ingestionSvc.RegisterRoutes(srv.Engine)
	projectionSvc.RegisterRoutes(srv.Engine)
	views.RegisterRoutes(srv.Engine)

	// 8. Start Services
	go func() {
		if err := scheduler.Start(ctx); err != nil {
			slog.Error("Scheduler stopped with error", "error", err)
		}
	}()
	if !cfg.Refresh.Enabled {
		slog.Info("Scheduled refreshes disabled by config; use POST /v1/views/refresh")
	}

	// Signal handler -> triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}
	cancel()
	views.Wait()

	slog.Info("Shutdown complete")
}

func newLogger(cfg corecfg.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
