package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/hostdiff/internal/diff"
	"github.com/five82/hostdiff/internal/ingest"
	"github.com/five82/hostdiff/internal/snapshot"
	"github.com/five82/hostdiff/internal/store"
)

const (
	defaultMaxUpload = 32 << 20
	shutdownTimeout  = 5 * time.Second
	readHeaderLimit  = 10 * time.Second
)

// Server serves the snapshot REST API.
type Server struct {
	repo      store.Repository
	ingester  *ingest.Ingester
	log       *zap.Logger
	maxUpload int64
}

// New builds a Server over repo. Uploads go through ingester.
func New(repo store.Repository, ingester *ingest.Ingester, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		repo:      repo,
		ingester:  ingester,
		log:       logger.Named("server"),
		maxUpload: defaultMaxUpload,
	}
}

// Handler returns the API routes wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("GET /api/hosts", s.handleHosts)
	mux.HandleFunc("GET /api/snapshots/{ip}", s.handleSnapshots)
	mux.HandleFunc("GET /api/snapshot/{ip}/{ts}", s.handleSnapshot)
	mux.HandleFunc("GET /api/diff/{ip}/{ts1}/{ts2}", s.handleDiffPath)
	mux.HandleFunc("GET /api/diff", s.handleDiffQuery)
	return withRequestID(withAccessLog(s.log, withCORS(mux)))
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderLimit,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("api listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.log.Info("api stopped")
		return nil
	})
	return g.Wait()
}

// FetchDiff compares two stored snapshots of host.
func (s *Server) FetchDiff(ctx context.Context, host, a, b string) (diff.Result, error) {
	snapA, err := s.loadSnapshot(ctx, host, a)
	if err != nil {
		return diff.Result{}, err
	}
	snapB, err := s.loadSnapshot(ctx, host, b)
	if err != nil {
		return diff.Result{}, err
	}
	return diff.Compare(snapA, snapB)
}

func (s *Server) loadSnapshot(ctx context.Context, host, timestamp string) (snapshot.Snapshot, error) {
	rec, err := s.repo.Get(ctx, host, timestamp)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	snap, err := snapshot.Parse(rec.Data)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("%w: stored snapshot %s @ %s: %v", diff.ErrMalformedSnapshot, host, timestamp, err)
	}
	snap.Host = rec.Host
	snap.Timestamp = rec.Timestamp
	return snap, nil
}
