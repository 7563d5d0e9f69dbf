// Package ui implements the hostdiff terminal interface with Bubble Tea.
//
// # Layout
//
//	┌ header: state badge, host count, selection, upload status ┐
//	├ command bar: key hints for the focused pane                ┤
//	┌ Hosts ┐┌ Snapshots ┐┌ Diff A..B ──────────────────────────┐
//	│● host ││A  ts1     ││ +1 -1 ~1                            │
//	│  host ││ B ts2     ││ Added services (1) ...              │
//	└───────┘└───────────┘└─────────────────────────────────────┘
//
// # Event Flow
//
// Everything runs on the Bubble Tea Update loop. Network calls are tea.Cmds
// that report back as messages:
//
//   - tickMsg re-reads the host list from state.Store (written by the poller)
//   - snapshotsMsg carries a snapshot list tagged with the host and selection
//     generation it was requested for; a list for an older generation is
//     dropped so a slow response never overwrites a newer host's list
//   - compareResultMsg is handed to compare.Session.Resolve, which keeps only
//     the latest request's outcome
//   - uploadResultMsg sets the status line ("Uploaded <ip> @ <ts>" or
//     "Error: ...") and triggers a host refresh
//
// Selecting a host resets both snapshot slots and clears the diff. Marking a
// snapshot keeps the displayed diff until the next compare. Pressing c with
// an incomplete selection shows "Pick host and two snapshots." and sends no
// request.
//
// # Key Bindings
//
//   - Tab / Shift+Tab: cycle panes; Esc: back to hosts
//   - j/k, g/G, Ctrl+d/u: move or scroll
//   - Enter: select host
//   - a / b: mark snapshot A / B, or clear the slot when the row is already in it
//   - c: compare
//   - u: upload a snapshot file
//   - r: refresh hosts and snapshots
//   - L: show the tail of the log file
//   - T: cycle theme (saved to prefs)
//   - h or ?: help; e or Ctrl+C: quit
package ui
