// Package repository is the pgx-backed persistence layer for every indexer
// family's tables, the checkpoint store, and the indexing-error ledger.
// Grounded on internal/repository/repo_core.go's pool-construction idiom
// (MaxConnLifetime/MaxConnIdleTime, statement_timeout/
// idle_in_transaction_session_timeout runtime params, env-overridable pool
// size) and postgres_leasing.go's ON CONFLICT upsert idiom, retargeted from
// Flow's raw.*/app.* tables onto this fleet's schema (§3.1).
package repository

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository wraps a pgxpool.Pool and implements every family's narrow
// Repository interface, checkpoint.Store, and scanner.ErrorSink as methods
// on the same value — one DB handle backs the whole fleet, the way the
// teacher's single *Repository backs every ingester.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository opens a pooled connection, tuned the way repo_core.go tunes
// the teacher's pool.
func NewRepository(ctx context.Context, dbURL string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("repository: parse db url: %w", err)
	}

	if v := os.Getenv("DB_MAX_OPEN_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.MaxConns = int32(n)
		}
	}
	if v := os.Getenv("DB_MAX_IDLE_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.MinConns = int32(n)
		}
	}

	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	if config.ConnConfig.RuntimeParams == nil {
		config.ConnConfig.RuntimeParams = map[string]string{}
	}
	if _, ok := config.ConnConfig.RuntimeParams["statement_timeout"]; !ok {
		config.ConnConfig.RuntimeParams["statement_timeout"] = getEnvDefault("DB_STATEMENT_TIMEOUT", "300000")
	}
	if _, ok := config.ConnConfig.RuntimeParams["idle_in_transaction_session_timeout"]; !ok {
		config.ConnConfig.RuntimeParams["idle_in_transaction_session_timeout"] = getEnvDefault("DB_IDLE_TX_TIMEOUT", "120000")
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("repository: connect: %w", err)
	}
	return &Repository{db: pool}, nil
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Migrate executes a schema file wholesale, same as the teacher's
// Repository.Migrate.
func (r *Repository) Migrate(ctx context.Context, schemaPath string) error {
	content, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("repository: read schema: %w", err)
	}
	if _, err := r.db.Exec(ctx, string(content)); err != nil {
		return fmt.Errorf("repository: apply schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (r *Repository) Close() {
	r.db.Close()
}
