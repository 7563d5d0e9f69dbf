package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DBPool abstracts pgxpool.Pool so the repository can be tested with pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

const (
	sqlCreateSnapshots = `
CREATE TABLE IF NOT EXISTS snapshots (
  host TEXT NOT NULL,
  timestamp TEXT NOT NULL,
  data JSONB NOT NULL,
  checksum TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  PRIMARY KEY (host, timestamp)
);`

	sqlInsertSnapshot = `
INSERT INTO snapshots (host, timestamp, data, checksum, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (host, timestamp) DO NOTHING;`

	sqlListHosts = `SELECT DISTINCT host FROM snapshots ORDER BY host ASC;`

	sqlListSnapshots = `SELECT timestamp FROM snapshots WHERE host = $1 ORDER BY timestamp ASC;`

	sqlGetSnapshot = `
SELECT data, checksum, created_at FROM snapshots
WHERE host = $1 AND timestamp = $2;`
)

// Postgres stores records in PostgreSQL.
type Postgres struct {
	pool DBPool
	log  *zap.Logger
}

// NewPostgres wraps pool and verifies the connection. Call EnsureSchema first
// on a fresh database.
func NewPostgres(ctx context.Context, pool DBPool, logger *zap.Logger) (*Postgres, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{pool: pool, log: logger.Named("store.postgres")}, nil
}

// EnsureSchema creates the snapshots table if it is missing.
func EnsureSchema(ctx context.Context, pool DBPool) error {
	if _, err := pool.Exec(ctx, sqlCreateSnapshots); err != nil {
		return fmt.Errorf("create snapshots table: %w", err)
	}
	return nil
}

// NewDB opens a pgx pool with small, steady defaults.
func NewDB(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

func (p *Postgres) Save(ctx context.Context, rec Record) (bool, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	tag, err := p.pool.Exec(ctx, sqlInsertSnapshot,
		rec.Host,
		rec.Timestamp,
		rec.Data,
		rec.Checksum,
		createdAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert snapshot: %w", err)
	}
	created := tag.RowsAffected() == 1
	if !created {
		p.log.Debug("snapshot already stored", zap.String("host", rec.Host), zap.String("timestamp", rec.Timestamp))
	}
	return created, nil
}

func (p *Postgres) ListHosts(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, sqlListHosts)
	if err != nil {
		return nil, fmt.Errorf("list hosts: %w", err)
	}
	hosts, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan hosts: %w", err)
	}
	return hosts, nil
}

func (p *Postgres) ListSnapshots(ctx context.Context, host string) ([]string, error) {
	rows, err := p.pool.Query(ctx, sqlListSnapshots, host)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	timestamps, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan snapshots: %w", err)
	}
	return timestamps, nil
}

func (p *Postgres) Get(ctx context.Context, host, timestamp string) (Record, error) {
	rec := Record{Host: host, Timestamp: timestamp}
	err := p.pool.QueryRow(ctx, sqlGetSnapshot, host, timestamp).Scan(&rec.Data, &rec.Checksum, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get snapshot: %w", err)
	}
	return rec, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

var _ Repository = (*Postgres)(nil)
