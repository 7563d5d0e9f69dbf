package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/five82/hostdiff/internal/api"
	"github.com/five82/hostdiff/internal/config"
	"github.com/five82/hostdiff/internal/diff"
	"github.com/five82/hostdiff/internal/ingest"
	"github.com/five82/hostdiff/internal/logging"
	"github.com/five82/hostdiff/internal/prefs"
	"github.com/five82/hostdiff/internal/server"
	"github.com/five82/hostdiff/internal/snapshot"
	"github.com/five82/hostdiff/internal/state"
	"github.com/five82/hostdiff/internal/store"
	"github.com/five82/hostdiff/internal/ui"
)

// Options configure both the TUI and the server.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses ~/.config/hostdiff/prefs.toml
	APIBind    string // overrides the configured api_bind
	LogLevel   string // overrides the configured log_level
	PollEvery  time.Duration
}

// LoadConfig reads the config file and applies command-line overrides.
func LoadConfig(opts Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if v := strings.TrimSpace(opts.APIBind); v != "" {
		cfg.APIBind = v
	}
	if v := strings.TrimSpace(opts.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	return cfg, nil
}

// RunTUI boots the interactive client until the user quits or ctx is
// cancelled. The TUI owns the terminal, so logs go to the log file only.
func RunTUI(ctx context.Context, opts Options) error {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogPath()})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	client, err := api.NewClient(cfg.APIBind)
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	hosts := &state.Store{}
	poller := NewPoller(hosts, client, opts.PollEvery, logger)
	done := poller.Start(ctx)
	defer func() {
		cancel()
		<-done
	}()

	logger.Info("tui started", zap.String("api", client.BaseURL()))
	return ui.Run(ui.Options{
		Context:   ctx,
		Backend:   client,
		Store:     hosts,
		Refresher: poller,
		Logger:    logger,
		ThemeName: userPrefs.Theme,
		LastHost:  userPrefs.LastHost,
		PrefsPath: opts.PrefsPath,
		LogPath:   cfg.LogPath(),
		APIBase:   client.BaseURL(),
	})
}

// RunServer serves the HTTP API until ctx is cancelled. Console receives
// human readable logs in addition to the rotated log file.
func RunServer(ctx context.Context, opts Options, console io.Writer) error {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	logOpts := logging.Options{Level: cfg.LogLevel, File: cfg.LogPath()}
	if console != nil {
		logOpts.Console = zapcore.AddSync(console)
	}
	logger, err := logging.New(logOpts)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	repo, err := store.Open(ctx, store.Options{
		Driver:      cfg.Store.Driver,
		Path:        cfg.DatabasePath(),
		DatabaseURL: cfg.Store.DatabaseURL,
		CacheSize:   cfg.Store.CacheSize,
		CacheTTL:    cfg.Store.CacheTTL,
	}, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = repo.Close() }()

	notifier, closeNotifier, err := newNotifier(ctx, cfg.PubSub)
	if err != nil {
		return err
	}
	defer closeNotifier()

	srv := server.New(repo, ingest.New(repo, notifier, logger), logger)
	logger.Info("hostdiff server starting",
		zap.String("bind", cfg.APIBind),
		zap.String("driver", cfg.Store.Driver),
		zap.Bool("pubsub", cfg.PubSub.Enabled()),
	)
	return srv.Run(ctx, cfg.APIBind)
}

func newNotifier(ctx context.Context, cfg config.PubSubConfig) (ingest.Notifier, func(), error) {
	if !cfg.Enabled() {
		return ingest.NoopNotifier{}, func() {}, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	topic := client.Topic(cfg.TopicID)
	return ingest.NewPubSubNotifier(topic), func() {
		topic.Stop()
		_ = client.Close()
	}, nil
}

// CompareFiles diffs two snapshot files without a server.
func CompareFiles(pathA, pathB string) (diff.Result, error) {
	a, err := readSnapshot(pathA)
	if err != nil {
		return diff.Result{}, err
	}
	b, err := readSnapshot(pathB)
	if err != nil {
		return diff.Result{}, err
	}
	return diff.Compare(a, b)
}

func readSnapshot(path string) (snapshot.Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	snap, err := snapshot.Parse(raw)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}
