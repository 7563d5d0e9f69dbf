package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound reports a (host, timestamp) pair with no stored snapshot.
var ErrNotFound = errors.New("snapshot not found")

// Record is one stored snapshot upload.
type Record struct {
	Host      string
	Timestamp string
	Data      []byte
	Checksum  string
	CreatedAt time.Time
}

// Repository persists snapshot records. Records are immutable: saving a
// (host, timestamp) that already exists is ignored and reports created=false.
type Repository interface {
	Save(ctx context.Context, rec Record) (created bool, err error)
	ListHosts(ctx context.Context) ([]string, error)
	ListSnapshots(ctx context.Context, host string) ([]string, error)
	Get(ctx context.Context, host, timestamp string) (Record, error)
	Close() error
}

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Options selects and configures a repository.
type Options struct {
	Driver      string
	Path        string
	DatabaseURL string
	CacheSize   int
	CacheTTL    time.Duration
}

// Open builds the repository named by opts.Driver, wrapped in a read cache
// when opts.CacheSize is positive.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		repo Repository
		err  error
	)
	switch driver := strings.ToLower(strings.TrimSpace(opts.Driver)); driver {
	case "", DriverSQLite:
		repo, err = OpenSQLite(opts.Path, logger)
	case DriverPostgres:
		repo, err = openPostgres(ctx, opts.DatabaseURL, logger)
	case DriverMemory:
		repo = NewMemory()
	default:
		return nil, fmt.Errorf("unsupported store driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	if opts.CacheSize > 0 {
		repo = NewCached(repo, opts.CacheSize, opts.CacheTTL)
	}
	logger.Named("store").Info("store opened",
		zap.String("driver", opts.Driver),
		zap.Int("cache_size", opts.CacheSize),
	)
	return repo, nil
}

func openPostgres(ctx context.Context, url string, logger *zap.Logger) (Repository, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("postgres driver requires database_url")
	}
	pool, err := NewDB(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	repo, err := NewPostgres(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}
