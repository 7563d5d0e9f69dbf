package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type snapshotRow struct {
	ID        uint           `gorm:"primaryKey"`
	Host      string         `gorm:"not null;uniqueIndex:idx_snapshots_host_ts"`
	Timestamp string         `gorm:"not null;uniqueIndex:idx_snapshots_host_ts"`
	Data      datatypes.JSON `gorm:"not null"`
	Checksum  string
	CreatedAt time.Time
}

func (snapshotRow) TableName() string { return "snapshots" }

// SQLite stores records in an embedded SQLite database through gorm.
type SQLite struct {
	db  *gorm.DB
	log *zap.Logger
}

// OpenSQLite opens (and migrates) the database file at path.
func OpenSQLite(path string, logger *zap.Logger) (*SQLite, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", path)
	}
	if err := db.AutoMigrate(&snapshotRow{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate snapshots table")
	}
	return &SQLite{db: db, log: logger.Named("store.sqlite")}, nil
}

// withTransaction runs fn inside a transaction bound to ctx.
func (s *SQLite) withTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *SQLite) Save(ctx context.Context, rec Record) (bool, error) {
	row := snapshotRow{
		Host:      rec.Host,
		Timestamp: rec.Timestamp,
		Data:      datatypes.JSON(rec.Data),
		Checksum:  rec.Checksum,
		CreatedAt: rec.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	var created bool
	err := s.withTransaction(ctx, func(tx *gorm.DB) error {
		q := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if err := q.Error; err != nil {
			return errors.Wrap(err, "failed to insert snapshot")
		}
		created = q.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	if !created {
		s.log.Debug("snapshot already stored", zap.String("host", rec.Host), zap.String("timestamp", rec.Timestamp))
	}
	return created, nil
}

func (s *SQLite) ListHosts(ctx context.Context) ([]string, error) {
	hosts := []string{}
	q := s.db.WithContext(ctx).Model(&snapshotRow{}).Distinct("host").Order("host ASC").Pluck("host", &hosts)
	if err := q.Error; err != nil {
		return nil, errors.Wrap(err, "failed to list hosts")
	}
	return hosts, nil
}

func (s *SQLite) ListSnapshots(ctx context.Context, host string) ([]string, error) {
	timestamps := []string{}
	q := s.db.WithContext(ctx).Model(&snapshotRow{}).
		Where("host = ?", host).
		Order("timestamp ASC").
		Pluck("timestamp", &timestamps)
	if err := q.Error; err != nil {
		return nil, errors.Wrapf(err, "failed to list snapshots for %s", host)
	}
	return timestamps, nil
}

func (s *SQLite) Get(ctx context.Context, host, timestamp string) (Record, error) {
	var row snapshotRow
	q := s.db.WithContext(ctx).Where("host = ? AND timestamp = ?", host, timestamp).First(&row)
	if err := q.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, errors.Wrapf(err, "failed to load snapshot %s @ %s", host, timestamp)
	}
	return Record{
		Host:      row.Host,
		Timestamp: row.Timestamp,
		Data:      []byte(row.Data),
		Checksum:  row.Checksum,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to access database handle")
	}
	return sqlDB.Close()
}

var _ Repository = (*SQLite)(nil)
