package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pressmill/pressmill/internal/dataset"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the connection pool used for snapshots.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore keeps one JSONB snapshot row per dataset id.
type PostgresStore struct {
	pool  pgPool
	table string
}

// NewPostgresStore connects a pool and builds the store.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
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
	return newPostgresStore(pool, cfg.Table)
}

// NewPostgresStoreWithPool constructs a store from an existing pool,
// primarily for testing.
func NewPostgresStoreWithPool(pool pgPool, table string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return newPostgresStore(pool, table)
}

func newPostgresStore(pool pgPool, table string) (*PostgresStore, error) {
	if table == "" {
		table = "datasets"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *PostgresStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Save upserts the whole snapshot document for the dataset id.
func (s *PostgresStore) Save(ctx context.Context, ds *dataset.Dataset) error {
	if ds.ID == "" {
		return fmt.Errorf("dataset id is required")
	}
	payload, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("marshal dataset %s: %w", ds.ID, err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s (id, payload, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`, s.table)

	if _, err := s.pool.Exec(ctx, query, ds.ID, payload); err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", ds.ID, err)
	}
	return nil
}

// Load reads the snapshot document for the id.
func (s *PostgresStore) Load(ctx context.Context, id string) (*dataset.Dataset, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE id = $1`, s.table)

	var payload []byte
	if err := s.pool.QueryRow(ctx, query, id).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select snapshot %s: %w", id, err)
	}
	var ds dataset.Dataset
	if err := json.Unmarshal(payload, &ds); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return &ds, nil
}
