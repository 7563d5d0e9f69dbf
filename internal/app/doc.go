// Package app is the composition root for hostdiff.
//
// # Overview
//
// RunTUI and RunServer wire configuration, logging, storage, transport and
// presentation together. Business logic lives in the domain packages
// (diff, selection, compare, store, ingest); this package only connects them.
//
// # Interactive client
//
//	┌──────────────┐
//	│   RunTUI()   │
//	└──────┬───────┘
//	       ├─────> LoadConfig()          config file + flag overrides
//	       ├─────> logging.New()         rotated file only; the TUI owns the terminal
//	       ├─────> prefs.Load()          theme, last host
//	       ├─────> api.NewClient()       HTTP client for the server
//	       ├─────> Poller.Start()        host list -> state.Store
//	       └─────> ui.Run()              Bubble Tea program (blocks)
//
// The poller refreshes the host list every PollEvery (default 5s) and on
// Trigger, which the TUI calls after an upload or an explicit refresh.
// Failures are recorded in the store and logged; polling continues.
//
// # Server
//
//	┌──────────────┐
//	│ RunServer()  │
//	└──────┬───────┘
//	       ├─────> logging.New()         console + rotated file
//	       ├─────> store.Open()          sqlite | postgres | memory, LRU cache
//	       ├─────> newNotifier()         Pub/Sub topic or no-op
//	       └─────> server.Run()          HTTP API until ctx is cancelled
//
// # Error Handling
//
// Fatal (returned): config parse errors, log directory creation, store open,
// Pub/Sub client creation, listener errors. Everything after startup is
// logged and surfaced per request.
//
// CompareFiles diffs two local snapshot files with the same engine the
// server uses; the CLI exposes it as local-diff.
package app
