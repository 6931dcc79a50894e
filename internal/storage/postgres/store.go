// Package postgres provides a Postgres-backed cache backend.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/site-insight/internal/cache"
)

const defaultTable = "analysis_cache"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for cache rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Store keeps one row per cache entry.
type Store struct {
	pool  querier
	table string
}

// New connects to Postgres and ensures the cache table exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("cache.postgres.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
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
	s := &Store{pool: pool, table: table}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool querier, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the cache table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	key TEXT PRIMARY KEY,
	value BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ,
	access_count BIGINT NOT NULL DEFAULT 0,
	last_accessed_at TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create cache table: %w", err)
	}
	return nil
}

// Name implements cache.Backend.
func (s *Store) Name() string { return "postgres" }

// Load implements cache.Backend.
func (s *Store) Load(ctx context.Context, key string) (cache.Entry, bool, error) {
	query := fmt.Sprintf(`SELECT key, value, created_at, expires_at, access_count, last_accessed_at FROM %s WHERE key = $1`, s.table)
	e, err := scanEntry(s.pool.QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("select cache entry: %w", err)
	}
	return e, true, nil
}

// Save implements cache.Backend.
func (s *Store) Save(ctx context.Context, e cache.Entry) error {
	query := fmt.Sprintf(`
INSERT INTO %s (key, value, created_at, expires_at, access_count, last_accessed_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (key) DO UPDATE SET
	value = EXCLUDED.value,
	created_at = EXCLUDED.created_at,
	expires_at = EXCLUDED.expires_at,
	access_count = EXCLUDED.access_count,
	last_accessed_at = EXCLUDED.last_accessed_at`, s.table)
	if _, err := s.pool.Exec(ctx, query,
		e.Key, e.Value, e.CreatedAt, e.ExpiresAt, e.AccessCount, e.LastAccessedAt,
	); err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// Remove implements cache.Backend.
func (s *Store) Remove(ctx context.Context, key string) (bool, error) {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table), key)
	if err != nil {
		return false, fmt.Errorf("delete cache entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Purge implements cache.Backend.
func (s *Store) Purge(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, s.table)); err != nil {
		return fmt.Errorf("purge cache: %w", err)
	}
	return nil
}

// Entries implements cache.Backend.
func (s *Store) Entries(ctx context.Context) ([]cache.Entry, error) {
	query := fmt.Sprintf(`SELECT key, value, created_at, expires_at, access_count, last_accessed_at FROM %s`, s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	defer rows.Close()

	var out []cache.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cache entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cache entries: %w", err)
	}
	return out, nil
}

func scanEntry(row pgx.Row) (cache.Entry, error) {
	var (
		e         cache.Entry
		expiresAt *time.Time
	)
	if err := row.Scan(&e.Key, &e.Value, &e.CreatedAt, &expiresAt, &e.AccessCount, &e.LastAccessedAt); err != nil {
		return cache.Entry{}, err
	}
	e.ExpiresAt = expiresAt
	return e, nil
}
