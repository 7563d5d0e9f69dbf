// Package ingest stores uploaded snapshot files and announces new ones.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/five82/hostdiff/internal/snapshot"
	"github.com/five82/hostdiff/internal/store"
)

// Receipt identifies the stored snapshot of one upload.
type Receipt struct {
	Host      string `json:"ip"`
	Timestamp string `json:"timestamp"`
	Checksum  string `json:"checksum"`
	Created   bool   `json:"created"`
}

// Ingester validates uploads, persists them and notifies listeners.
type Ingester struct {
	repo     store.Repository
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

// New builds an Ingester. A nil notifier disables notifications.
func New(repo store.Repository, notifier Notifier, logger *zap.Logger) *Ingester {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{
		repo:     repo,
		notifier: notifier,
		log:      logger.Named("ingest"),
		now:      time.Now,
	}
}

// Checksum returns the hex xxh3-128 digest of raw.
func Checksum(raw []byte) string {
	return fmt.Sprintf("%x", xxh3.Hash128(raw).Bytes())
}

// Ingest parses raw (using filename to fill a missing ip or timestamp) and
// stores it. Uploading an already stored (ip, timestamp) keeps the first
// copy and returns Created=false. Parse failures wrap
// snapshot.ErrInvalidSnapshot.
func (i *Ingester) Ingest(ctx context.Context, filename string, raw []byte) (Receipt, error) {
	snap, err := snapshot.ParseUpload(filename, raw)
	if err != nil {
		return Receipt{}, err
	}

	rec := store.Record{
		Host:      snap.Host,
		Timestamp: snap.Timestamp,
		Data:      raw,
		Checksum:  Checksum(raw),
		CreatedAt: i.now().UTC(),
	}
	created, err := i.repo.Save(ctx, rec)
	if err != nil {
		return Receipt{}, fmt.Errorf("save snapshot %s @ %s: %w", snap.Host, snap.Timestamp, err)
	}

	receipt := Receipt{Host: snap.Host, Timestamp: snap.Timestamp, Checksum: rec.Checksum, Created: created}
	i.log.Info("snapshot ingested",
		zap.String("host", receipt.Host),
		zap.String("timestamp", receipt.Timestamp),
		zap.Int("services", len(snap.Services)),
		zap.Bool("created", created),
	)

	if created {
		if err := i.notifier.Notify(ctx, Event(receipt)); err != nil {
			i.log.Warn("ingest notification failed", zap.String("host", receipt.Host), zap.Error(err))
		}
	}
	return receipt, nil
}
