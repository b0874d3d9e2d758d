// Package app provides the orchestration layer for podtail.
//
// # Overview
//
// This package wires configuration, discovery, the worker supervisor, the
// line multiplexer and the optional terminal view into one run. It is the
// composition root: every dependency is built and connected here, and
// nothing below it knows about the others.
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> logging.New()       Diagnostics to stderr or a file
//	       ├─────> highlight.New()     Compile the failure pattern
//	       ├─────> Backend.List()      kubectl, docker or file discovery
//	       ├─────> persist.New()       Per-source files (with --save)
//	       ├─────> mux.New()           Single writer for all sources
//	       ├─────> supervisor.Run()    One worker per source (blocks)
//	       └─────> ui.Run()            Terminal view (with --tui, blocks)
//
//	Worker ─> mux ─┬─> persist (raw line)
//	               └─> highlight ─> tag ─> stdout or ui.Sink
//
// # Run Lifecycle
//
// Bounded runs end once every source's stream has ended. Follow runs end when
// ctx is cancelled; with the terminal view, quitting it cancels the run. In
// both cases the multiplexer is drained before files are closed, so no
// delivered line is lost.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Invalid configuration or highlight pattern
//   - Backend setup failure (e.g., no docker daemon)
//   - Discovery failure, including source.ErrNotFound when nothing matches
//   - Output write failure
//
// Per-source failures are not fatal: they are printed with the error marker
// (or shown in the terminal view header) while other sources keep streaming.
//
// # Status Logging
//
// With debug logging enabled, StartStatusLogger writes a progress line every
// few seconds: sources by status and total lines delivered.
package app
