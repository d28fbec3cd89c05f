// Package postgres provides Postgres-backed persistence implementations.
//
// Schema (managed outside the service):
//
//	CREATE TABLE announcements (
//		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//		title TEXT NOT NULL,
//		description TEXT NOT NULL,
//		time_label TEXT NOT NULL,
//		source TEXT NOT NULL,
//		scraped_at TIMESTAMPTZ NOT NULL,
//		identity_digest TEXT NOT NULL UNIQUE,
//		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//
//	CREATE TABLE recipients (
//		email TEXT PRIMARY KEY,
//		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//
//	CREATE TABLE runs (
//		id UUID PRIMARY KEY,
//		status TEXT NOT NULL,
//		message TEXT NOT NULL DEFAULT '',
//		new_count INT NOT NULL DEFAULT 0,
//		started_at TIMESTAMPTZ NOT NULL,
//		finished_at TIMESTAMPTZ NOT NULL
//	);
//
// The unique identity_digest index is a correctness requirement, not an
// optimization: concurrent runs could both observe "not exists" and
// double-insert without it.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the subset of pgxpool.Pool the stores need. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Config controls the shared connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Connect opens a pgx pool using the provided config.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}
