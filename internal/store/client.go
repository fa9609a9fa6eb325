// Package store persists walking estimates and calibration samples in
// SQLite or Postgres.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // Pure Go SQLite driver
	"walktimes.dev/internal/appconf"
	"walktimes.dev/internal/logging"
)

//go:embed schema.sql
var ddl string

var ErrNotFound = errors.New("not found")

// Client owns the database handle and its queries.
type Client struct {
	config  Config
	DB      *sql.DB
	Queries *Queries
}

func NewClient(config Config) (*Client, error) {
	db, err := createDB(config)
	if err != nil {
		return nil, err
	}
	if config.verbose {
		logging.LogOperation(slog.Default(), "store_migrated",
			slog.String("driver", config.Driver))
	}

	return &Client{
		config:  config,
		DB:      db,
		Queries: New(db, config.Driver),
	}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func createDB(config Config) (*sql.DB, error) {
	switch config.Driver {
	case "":
		config.Driver = DriverSQLite
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported store driver %q", config.Driver)
	}
	inMemory := config.DSN == ":memory:"
	if config.Env == appconf.Test && config.Driver == DriverSQLite && !inMemory {
		return nil, fmt.Errorf("test database must use in-memory storage, got %q", config.DSN)
	}

	db, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if inMemory {
		// Every connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	if err := performDatabaseMigration(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error performing database migration: %w", err)
	}
	return db, nil
}

func performDatabaseMigration(ctx context.Context, db *sql.DB) error {
	statements := strings.Split(ddl, "-- migrate")
	for _, stmt := range statements {
		trimmedStmt := strings.TrimSpace(stmt)
		if trimmedStmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, trimmedStmt); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmedStmt, err)
		}
	}
	return nil
}

// TableCounts reports the row count of every table the store owns.
func (c *Client) TableCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, table := range []string{"travel_times", "calibration_samples"} {
		var n int
		if err := c.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// SaveCalibrationRun inserts samples in one transaction and returns them
// with their assigned ids.
func (c *Client) SaveCalibrationRun(ctx context.Context, samples []CalibrationSample) ([]CalibrationSample, error) {
	logger := logging.FromContext(ctx).With(slog.String("component", "store"))

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning calibration run: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, logger, "save_calibration_run")

	qtx := c.Queries.WithTx(tx)
	saved := make([]CalibrationSample, 0, len(samples))
	for _, s := range samples {
		stored, err := qtx.InsertCalibrationSample(ctx, s)
		if err != nil {
			return nil, err
		}
		saved = append(saved, stored)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing calibration run: %w", err)
	}
	return saved, nil
}
