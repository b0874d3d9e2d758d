// Package ui provides the optional terminal view for podtail.
//
// # Architecture Overview
//
// The view is a Bubble Tea program. It never talks to sources directly:
// the multiplexer writes rendered lines into a Sink, and the model drains
// the Sink and reads a state.Store snapshot on a fixed tick. The
// multiplexer therefore never blocks on rendering.
//
// # Package Structure
//
//   - model.go: Model, key handling, search and the Run entry point
//   - render.go: header, status bar and log content rendering
//   - sink.go: the mux.Sink the multiplexer writes to
//   - theme.go: color themes, cycled with "T" and saved to prefs
//   - errors.go: the error marker used for terminal-less output
//
// # Log Buffer
//
// At most LogBufferLimit lines are kept; older lines scroll out. In follow
// mode the view stays pinned to the newest line. Scrolling up pauses follow
// and Space or "G" resumes it.
//
// # Search
//
// "/" opens a case-insensitive regex search over the buffer with colors
// stripped. Matching lines are marked in the gutter and "n"/"N" move between
// them. Esc clears the search.
package ui
