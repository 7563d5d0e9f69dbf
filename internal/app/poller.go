package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/five82/hostdiff/internal/state"
)

const (
	defaultPollInterval = 5 * time.Second
	refreshTimeout      = 5 * time.Second
)

// HostLister is the slice of the API client the poller needs.
type HostLister interface {
	ListHosts(ctx context.Context) ([]string, error)
}

// Poller keeps the host list in a state.Store fresh. It refreshes on a fixed
// cadence and whenever Trigger is called.
type Poller struct {
	store    *state.Store
	client   HostLister
	interval time.Duration
	logger   *zap.Logger
	trigger  chan struct{}
}

// NewPoller builds a poller. A non-positive interval uses the default.
func NewPoller(store *state.Store, client HostLister, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		store:    store,
		client:   client,
		interval: interval,
		logger:   logger.Named("poller"),
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an immediate refresh. It never blocks; requests made while
// one is already queued collapse into it.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Start runs the poll loop in a goroutine. The returned channel is closed
// once the loop has exited after ctx is cancelled.
func (p *Poller) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	return done
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.Refresh(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.trigger:
		}
	}
}

// Refresh fetches the host list once and records the outcome.
func (p *Poller) Refresh(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	hosts, err := p.client.ListHosts(ctx)
	if err != nil {
		p.store.Update(nil, err)
		p.logger.Warn("host poll failed", zap.Error(err))
		return
	}
	p.store.Update(hosts, nil)
	p.logger.Debug("host poll", zap.Int("hosts", len(hosts)))
}
