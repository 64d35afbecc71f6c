// Package infrastructure provides database and connection pool setup.
//
// One pgxpool serves the roster store, goose migrations, and River. Goose
// needs a *sql.DB, which is opened from the shared pool rather than as a
// second connection set.
package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"go.uber.org/zap"

	"lunchmanager.io/lunchmanager/internal/config"
	"lunchmanager.io/lunchmanager/internal/pkg/logger"
	"lunchmanager.io/lunchmanager/internal/store"
)

// DatabaseClients bundles everything backed by the shared connection pool.
type DatabaseClients struct {
	// Pool is the shared connection pool.
	Pool *pgxpool.Pool

	// DB is the *sql.DB wrapper around Pool, used by goose.
	DB *sql.DB

	// Store is the roster store backed by the shared pool.
	Store *store.PostgresStore

	// RiverClient is the job queue client, nil until InitRiverClient.
	RiverClient *river.Client[pgx.Tx]
}

// NewDatabaseClients connects the shared pool and verifies it with a ping.
func NewDatabaseClients(ctx context.Context, cfg config.DatabaseConfig) (*DatabaseClients, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = time.Minute

	// Timestamps in the roster schema are timestamptz; keep sessions UTC so
	// goose and ad-hoc queries agree with the store.
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET timezone = 'UTC'")
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("Database connection pool created",
		zap.Int32("max_conns", cfg.MaxConns),
		zap.Int32("min_conns", cfg.MinConns),
	)

	return &DatabaseClients{
		Pool:  pool,
		DB:    stdlib.OpenDBFromPool(pool),
		Store: store.NewPostgresStore(pool),
	}, nil
}

// Migrate runs a goose command ("up", "down" or "status") against the
// embedded roster schema migrations. "up" also applies River's queue tables
// so a fresh database is worker-ready after one call.
func (c *DatabaseClients) Migrate(ctx context.Context, command string) error {
	goose.SetBaseFS(store.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	switch command {
	case "up":
		if err := goose.UpContext(ctx, c.DB, "migrations"); err != nil {
			return fmt.Errorf("goose up: %w", err)
		}
		return c.migrateRiver(ctx)
	case "down":
		if err := goose.DownContext(ctx, c.DB, "migrations"); err != nil {
			return fmt.Errorf("goose down: %w", err)
		}
		return nil
	case "status":
		if err := goose.StatusContext(ctx, c.DB, "migrations"); err != nil {
			return fmt.Errorf("goose status: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown migrate command %q (want up, down or status)", command)
	}
}

func (c *DatabaseClients) migrateRiver(ctx context.Context) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(c.Pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("river migrate up: %w", err)
	}
	if len(res.Versions) > 0 {
		logger.Info("River migration completed",
			zap.Int("versions_applied", len(res.Versions)),
		)
	}
	return nil
}

// InitRiverClient creates the River client with registered workers. The sync
// queue runs one worker; concurrent sync runs race on upserts.
func (c *DatabaseClients) InitRiverClient(workers *river.Workers, cfg config.RiverConfig) error {
	riverClient, err := river.NewClient(riverpgxv5.New(c.Pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.MaxWorkers},
		},
		Workers:                     workers,
		CompletedJobRetentionPeriod: cfg.CompletedJobRetentionPeriod,
	})
	if err != nil {
		return fmt.Errorf("create river client: %w", err)
	}
	c.RiverClient = riverClient
	logger.Info("River client initialized", zap.Int("max_workers", cfg.MaxWorkers))
	return nil
}

// Close closes the pool and its wrappers gracefully.
func (c *DatabaseClients) Close() {
	if c.DB != nil {
		c.DB.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
