// Package state provides thread-safe run state for podtail.
//
// # Overview
//
// The Store records what every tailed source is doing: whether its stream is
// still pending, streaming, or has ended, how many lines it has delivered,
// and the last error it reported. Workers and the multiplexer write to it;
// the terminal UI and the debug status log read from it.
//
// # Architecture
//
//	Writers:                          Reader:
//	┌──────────────────────┐         ┌──────────────────┐
//	│ supervisor workers   │         │                  │
//	│   SetStatus()        │         │                  │
//	│ multiplexer          │────────→│ store.Snapshot() │
//	│   CountLine()        │ (mutex) │      ↓           │
//	└──────────────────────┘         │  render header   │
//	                                 └──────────────────┘
//
// # Core Types
//
// Store:
//   - Zero value is ready to use
//   - Uses sync.RWMutex; many writers, occasional readers
//   - Sources keep their registration order
//
// Snapshot:
//   - Copy of every SourceState at one point in time
//   - Errors are re-wrapped so callers never share the stored value
//   - Counts, TotalLines, and Failed summarize it for display
//
// # Lifecycle
//
//	Track(src)                         → pending
//	SetStatus(id, StatusStreaming, nil) → streaming (StartedAt set once)
//	SetStatus(id, StatusCompleted, nil) → completed (EndedAt set)
//	SetStatus(id, StatusFailed, err)    → failed    (LastError kept)
//	SetStatus(id, StatusCancelled, nil) → cancelled
//
// Updates for IDs that were never tracked are dropped, so a late line from a
// source outside the run cannot create phantom entries.
package state
