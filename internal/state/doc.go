// Package state holds the host list shared between the background poller and
// the TUI.
//
// # Overview
//
// The poller refreshes the list of known hosts on a ticker (and on demand
// after an upload). The TUI reads the latest copy on its own tick. Store sits
// between the two goroutines:
//
//	Poller goroutine:            TUI (Bubble Tea loop):
//	┌──────────────────┐         ┌───────────────────┐
//	│ client.ListHosts │         │ tick              │
//	│       ↓          │         │   ↓               │
//	│ store.Update()   │───────→ │ store.Snapshot()  │
//	└──────────────────┘ (mutex) └───────────────────┘
//
// # Update Semantics
//
//	// Success: replace the list
//	store.Update(hosts, nil)
//	→ snapshot.Hosts = hosts, HasHosts = true
//	→ snapshot.LastError = nil, ConsecutiveFailures = 0
//
//	// Failure: keep the list, record the error
//	store.Update(nil, err)
//	→ snapshot.Hosts = <unchanged>
//	→ snapshot.LastError = err, ConsecutiveFailures++
//
// LastUpdated is set in both cases. HasHosts distinguishes "no hosts yet" from
// "server has no hosts". IsOffline reports two or more consecutive failures,
// which the TUI shows in its status bar.
//
// # Copying
//
// Update and Snapshot clone the host slice, so callers may keep or mutate the
// returned value freely. The zero Store is ready to use.
package state
