package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
	_ "github.com/newrelic/go-agent/v3/integrations/nrpq" // registers "nrpostgres"
	"github.com/newrelic/go-agent/v3/newrelic"

	"louage/internal/config"
)

// NewDatabase opens the trip and booking ledger database. When nrApp is set
// the New Relic instrumented driver is used so every ledger query is traced.
func NewDatabase(ctx context.Context, cfg config.DatabaseConfig, nrApp *newrelic.Application) (*sql.DB, error) {
	driver := "postgres"
	if nrApp != nil {
		driver = "nrpostgres"
	}

	db, err := sql.Open(driver, postgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database (%s): %w", driver, err)
	}

	// Seat writes hold a row for the length of one transaction, so the pool
	// bounds how many trips can be mutated at once.
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.SchemaPath != "" {
		if err := applySchema(ctx, db, cfg.SchemaPath); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

func postgresDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)
}

// applySchema runs the users/trips/bookings DDL. Every statement is
// IF NOT EXISTS, so it is safe on an existing database.
func applySchema(ctx context.Context, db *sql.DB, path string) error {
	ddl, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read schema %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, string(ddl)); err != nil {
		return fmt.Errorf("failed to apply schema %s: %w", path, err)
	}
	log.Printf("database schema applied: %s", path)
	return nil
}
