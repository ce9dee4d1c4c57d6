package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/OPGLOL/opgl-raid-tracker/internal/config"

	// PostgreSQL driver import for database/sql
	_ "github.com/lib/pq"
)

// DefaultPort is used when the configuration leaves the port empty
const DefaultPort = "5432"

// schemaStatements create the tables backing ingestion API keys
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS ingest_keys (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		key_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		rate_limit INTEGER NOT NULL,
		rate_window_seconds INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT true,
		documents_ingested BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_used_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS ingest_rate_windows (
		ingest_key_id UUID NOT NULL REFERENCES ingest_keys(id) ON DELETE CASCADE,
		window_start TIMESTAMPTZ NOT NULL,
		request_count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (ingest_key_id, window_start)
	)`,
}

// Database wraps the sql.DB connection for PostgreSQL operations
type Database struct {
	*sql.DB
}

// ConnectionString builds the lib/pq connection string for databaseConfig
func ConnectionString(databaseConfig config.DatabaseConfig) string {
	port := databaseConfig.Port
	if port == "" {
		port = DefaultPort
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		databaseConfig.Host, port, databaseConfig.User, databaseConfig.Password, databaseConfig.Name,
	)
}

// NewPostgresConnection opens and verifies a PostgreSQL connection
func NewPostgresConnection(ctx context.Context, databaseConfig config.DatabaseConfig) (*Database, error) {
	sqlDB, err := sql.Open("postgres", ConnectionString(databaseConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	// Verify connection is working
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: sqlDB}, nil
}

// EnsureSchema creates the API key tables when they do not exist yet
func (database *Database) EnsureSchema(ctx context.Context) error {
	for _, statement := range schemaStatements {
		if _, err := database.DB.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (database *Database) Close() error {
	if database.DB != nil {
		return database.DB.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (database *Database) Ping(ctx context.Context) error {
	return database.DB.PingContext(ctx)
}
