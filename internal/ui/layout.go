package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutExtraWideWidth gives the diff pane a larger share.
	LayoutExtraWideWidth = 160
)

// Timing constants.
const (
	// FetchTimeout bounds snapshot-list and upload requests.
	FetchTimeout = 10 * time.Second

	// CompareTimeout bounds a diff request.
	CompareTimeout = 30 * time.Second

	// DefaultUIInterval is how often the host list is re-read from the store.
	DefaultUIInterval = time.Second
)
