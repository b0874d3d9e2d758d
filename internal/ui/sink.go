package ui

import (
	"sync"

	"github.com/five82/podtail/internal/mux"
)

// Sink buffers rendered lines from the multiplexer until the UI drains them
// on its next tick. When the UI falls behind, the oldest undrained lines are
// discarded so the buffer never exceeds its limit.
type Sink struct {
	mu      sync.Mutex
	limit   int
	pending []string
	dropped int
}

// NewSink returns a Sink holding at most limit undrained lines. A limit of
// zero or less uses LogBufferLimit.
func NewSink(limit int) *Sink {
	if limit <= 0 {
		limit = LogBufferLimit
	}
	return &Sink{limit: limit}
}

// Emit implements mux.Sink.
func (s *Sink) Emit(rec mux.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, rec.Line)
	if over := len(s.pending) - s.limit; over > 0 {
		s.pending = append(s.pending[:0:0], s.pending[over:]...)
		s.dropped += over
	}
	return nil
}

// Drain returns the buffered lines in arrival order and how many were
// discarded since the last drain.
func (s *Sink) Drain() (lines []string, dropped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines, dropped = s.pending, s.dropped
	s.pending, s.dropped = nil, 0
	return lines, dropped
}
