package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the width below which the header drops the
	// line total and the failed source list.
	LayoutCompactWidth = 100
)

// Log display limits.
const (
	// LogBufferLimit is the maximum number of log lines to keep in memory.
	LogBufferLimit = 5000

	// SearchInputLimit caps the length of a search pattern.
	SearchInputLimit = 100
)

// Timing constants.
const (
	// DefaultUIInterval is how often buffered lines and source status are
	// pulled into the view.
	DefaultUIInterval = 100 * time.Millisecond
)
