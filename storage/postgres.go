package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		verification_token TEXT,
		telegram_chat_id BIGINT,
		telegram_link_code TEXT,
		telegram_code_until TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		current_price BIGINT,
		last_price BIGINT,
		original_price BIGINT,
		discount_percent INT,
		status TEXT NOT NULL DEFAULT 'PENDING',
		notify_on_price_drop BOOLEAN,
		notify_on_price_increase BOOLEAN,
		fail_count INT NOT NULL DEFAULT 0,
		last_checked_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, url)
	);

	CREATE TABLE IF NOT EXISTS price_snapshots (
		id BIGSERIAL PRIMARY KEY,
		product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		price BIGINT NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_product_recorded
		ON price_snapshots (product_id, recorded_at DESC);

	CREATE TABLE IF NOT EXISTS notifications (
		id BIGSERIAL PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		product_id UUID REFERENCES products(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		message TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_notifications_user_created
		ON notifications (user_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS scrape_leases (
		product_id UUID PRIMARY KEY,
		owner TEXT NOT NULL,
		locked_until TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scrape_runs (
		id BIGSERIAL PRIMARY KEY,
		triggered_by TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		status TEXT NOT NULL,
		products_checked INT NOT NULL DEFAULT 0,
		price_changes INT NOT NULL DEFAULT 0,
		skipped INT NOT NULL DEFAULT 0,
		errors_count INT NOT NULL DEFAULT 0
	);`

	_, err := s.pool.Exec(ctx, schema)
	return err
}
