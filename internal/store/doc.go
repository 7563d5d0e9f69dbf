// Package store persists uploaded snapshots.
//
// Three Repository implementations share one contract: Memory for tests and
// throwaway servers, SQLite (gorm) as the embedded default, and Postgres
// (pgx) for shared deployments. Open picks one from configuration and wraps
// it in Cached when a cache size is set.
//
// Records are keyed by (host, timestamp) and never updated. A second Save of
// the same key is ignored and reports created=false; the first upload wins.
// Host and timestamp lists are returned in ascending order.
package store
