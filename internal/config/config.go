package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds hostdiff's settings for both the server and the TUI client.
type Config struct {
	APIBind  string
	DataDir  string
	LogLevel string
	Store    StoreConfig
	PubSub   PubSubConfig
}

// StoreConfig selects the snapshot repository.
type StoreConfig struct {
	Driver      string
	DatabaseURL string
	CacheSize   int
	CacheTTL    time.Duration
}

// PubSubConfig enables ingest notifications when TopicID is set.
type PubSubConfig struct {
	ProjectID string
	TopicID   string
}

// Enabled reports whether notifications should be published.
func (p PubSubConfig) Enabled() bool {
	return p.ProjectID != "" && p.TopicID != ""
}

const (
	defaultConfigPath = "~/.config/hostdiff/config.toml"
	defaultDataDir    = "~/.local/share/hostdiff"
	defaultAPIBind    = "127.0.0.1:7490"
	defaultLogLevel   = "info"
	defaultDriver     = "sqlite"
	defaultCacheSize  = 256
	defaultCacheTTL   = 10 * time.Minute

	envAPIBind     = "HOSTDIFF_API_BIND"
	envDatabaseURL = "HOSTDIFF_DATABASE_URL"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIBind:  defaultAPIBind,
		DataDir:  mustExpand(defaultDataDir),
		LogLevel: defaultLogLevel,
		Store: StoreConfig{
			Driver:    defaultDriver,
			CacheSize: defaultCacheSize,
			CacheTTL:  defaultCacheTTL,
		},
	}
}

// Load locates and parses the config file, falling back to defaults when it
// is missing. Environment overrides apply in both cases.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIBind  string `toml:"api_bind"`
		DataDir  string `toml:"data_dir"`
		LogLevel string `toml:"log_level"`
		Store    struct {
			Driver      string `toml:"driver"`
			DatabaseURL string `toml:"database_url"`
			CacheSize   *int   `toml:"cache_size"`
			CacheTTL    string `toml:"cache_ttl"`
		} `toml:"store"`
		PubSub struct {
			ProjectID string `toml:"project_id"`
			TopicID   string `toml:"topic_id"`
		} `toml:"pubsub"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIBind); v != "" {
		cfg.APIBind = v
	}
	if v := strings.TrimSpace(raw.DataDir); v != "" {
		cfg.DataDir = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.Store.Driver); v != "" {
		cfg.Store.Driver = strings.ToLower(v)
	}
	cfg.Store.DatabaseURL = strings.TrimSpace(raw.Store.DatabaseURL)
	if raw.Store.CacheSize != nil {
		cfg.Store.CacheSize = max(*raw.Store.CacheSize, 0)
	}
	if v := strings.TrimSpace(raw.Store.CacheTTL); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse config: store.cache_ttl: %w", err)
		}
		cfg.Store.CacheTTL = ttl
	}
	cfg.PubSub.ProjectID = strings.TrimSpace(raw.PubSub.ProjectID)
	cfg.PubSub.TopicID = strings.TrimSpace(raw.PubSub.TopicID)

	applyEnv(&cfg)
	return cfg, nil
}

// DatabasePath returns the embedded SQLite database location.
func (c Config) DatabasePath() string {
	return filepath.Join(c.dataDir(), "snapshots.db")
}

// LogPath returns the rotating log file location.
func (c Config) LogPath() string {
	return filepath.Join(c.dataDir(), "hostdiff.log")
}

func (c Config) dataDir() string {
	if strings.TrimSpace(c.DataDir) == "" {
		return mustExpand(defaultDataDir)
	}
	return c.DataDir
}

func applyEnv(cfg *Config) {
	cfg.APIBind = getEnv(envAPIBind, cfg.APIBind)
	cfg.Store.DatabaseURL = getEnv(envDatabaseURL, cfg.Store.DatabaseURL)
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
