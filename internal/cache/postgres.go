package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const migrationSQL = `
CREATE TABLE IF NOT EXISTS api_cache (
    id SERIAL PRIMARY KEY,
    data_type TEXT NOT NULL,
    token_name TEXT NOT NULL,
    payload JSONB NOT NULL,
    fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE(data_type, token_name)
);

CREATE INDEX IF NOT EXISTS idx_api_cache_fetched_at ON api_cache (fetched_at);
`

// PostgresStore persists cache entries in an api_cache table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() { s.pool.Close() }

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, migrationSQL)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, key Key) (*Entry, error) {
	var e Entry
	err := s.pool.QueryRow(ctx, `
		SELECT payload, fetched_at FROM api_cache
		WHERE data_type = $1 AND token_name = $2`,
		key.DataType, key.Entity).Scan(&e.Payload, &e.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *PostgresStore) Put(ctx context.Context, key Key, payload []byte, fetchedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO api_cache (data_type, token_name, payload, fetched_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (data_type, token_name) DO UPDATE
			SET payload = $3, fetched_at = $4`,
		key.DataType, key.Entity, payload, fetchedAt)
	return err
}

// DeleteStale removes entries older than maxAge and returns the count.
func (s *PostgresStore) DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM api_cache WHERE fetched_at < $1`, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
