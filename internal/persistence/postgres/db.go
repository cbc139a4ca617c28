// Package postgres implements the persistence interfaces against
// PostgreSQL via sqlx and lib/pq (spec §6 "Persistence surface").
package postgres

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/hoangnph/vnquant/internal/settings"
)

// Open connects to Postgres and sizes the pool per spec §5 ("DB
// connection pool sized >= B+2").
func Open(cfg settings.Database) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 30 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)
	return db, nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// conflict (code 23505) — not an error in upsert paths (spec §7
// "Persistence" kind).
func isUniqueViolation(err error) bool {
	pqErr, ok := asPQError(err)
	return ok && pqErr.Code == "23505"
}
