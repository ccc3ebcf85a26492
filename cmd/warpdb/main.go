// Package main implements the warpdb connectivity probe. It wires the
// configuration, logging, metrics and connection runtime together against a
// real PostgreSQL database and verifies that a transaction can run end to
// end through the scoped connection machinery.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/warpkit/warpdb/internal/config"
	"github.com/warpkit/warpdb/internal/db"
	"github.com/warpkit/warpdb/internal/platform/logger"
	"github.com/warpkit/warpdb/internal/platform/metrics"
	"github.com/warpkit/warpdb/internal/platform/postgres"
	"github.com/warpkit/warpdb/internal/query"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("warpdb: %v", err)
	}
}

// run loads configuration, sets up the runtime and executes the probe.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logr, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	pool, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = pool.Close() }()

	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	logr.Info("database connection established")

	collector := metrics.NewCollector("warpdb", prometheus.DefaultRegisterer)
	engine := db.NewEngine(logr, db.WithMetrics(collector))
	if err := engine.Initialize(postgres.NewFactory(pool)); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	queries := query.New(engine)
	ctx := logger.WithLogger(context.Background(), logr)
	err = engine.WithTransaction(ctx, func(ctx context.Context) error {
		n, err := queries.SelectInt(ctx, "select 1")
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("unexpected probe result: %d", n)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("connectivity check failed: %w", err)
	}

	logr.Info("connectivity check passed")
	return nil
}
