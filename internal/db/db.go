// Package db provides database connection handling for the search API.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Registers the postgres driver.
	_ "github.com/lib/pq"
)

// TrigramRequirement documents that the application requires PostgreSQL
// with the pg_trgm extension. Trigram similarity backs fuzzy matching
// and spelling suggestions.
const TrigramRequirement = "pg_trgm extension is required for similarity queries"

// ExtensionQuery is the SQL query to verify pg_trgm is available.
const ExtensionQuery = "SELECT extversion FROM pg_extension WHERE extname = 'pg_trgm'"

// Open connects to Postgres, verifies connectivity and the pg_trgm
// extension, and returns the pool.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	pool, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(5)
	pool.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	var version string
	if err := pool.QueryRowContext(pingCtx, ExtensionQuery).Scan(&version); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("%s: %w", TrigramRequirement, err)
	}

	return pool, nil
}
