// Package config loads hostdiff's TOML configuration.
//
// # Overview
//
// One file configures both halves of hostdiff: the API server (listen
// address, snapshot store, ingest notifications) and the TUI client (which
// server to talk to). The client and server share api_bind, so a default
// install works with no configuration at all.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/hostdiff/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing/empty, use defaults
//  5. HOSTDIFF_API_BIND and HOSTDIFF_DATABASE_URL override the result
//
// # Default Values
//
//   - Config file: ~/.config/hostdiff/config.toml
//   - API endpoint: 127.0.0.1:7490
//   - Data directory: ~/.local/share/hostdiff
//   - SQLite database: <data_dir>/snapshots.db
//   - Log file: <data_dir>/hostdiff.log
//   - Store: sqlite, 256 cached snapshots for 10m
//
// # TOML Format
//
//	api_bind = "127.0.0.1:7490"
//	data_dir = "~/.local/share/hostdiff"
//	log_level = "info"
//
//	[store]
//	driver = "sqlite"          # sqlite | postgres | memory
//	database_url = ""          # postgres only
//	cache_size = 256           # 0 disables the snapshot cache
//	cache_ttl = "10m"
//
//	[pubsub]
//	project_id = ""
//	topic_id = ""              # both set enables ingest notifications
//
// Every field is optional. Values are trimmed and tilde expansion is applied
// to data_dir. An unparseable cache_ttl is reported as a parse error.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//		return err
//	}
//	client, err := api.NewClient(cfg.APIBind)
//	logPath := cfg.LogPath()
package config
