package state

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/five82/podtail/internal/source"
)

// Status is the lifecycle stage of one source's stream.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// SourceState is the latest known state of one source.
type SourceState struct {
	ID        string
	Kind      source.Kind
	Status    Status
	Lines     int
	LastError error
	StartedAt time.Time
	EndedAt   time.Time
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Sources     []SourceState // ordered by registration
	LastUpdated time.Time
}

// Counts tallies sources by status.
func (s Snapshot) Counts() map[Status]int {
	counts := make(map[Status]int, 5)
	for _, src := range s.Sources {
		counts[src.Status]++
	}
	return counts
}

// TotalLines returns the number of lines delivered across all sources.
func (s Snapshot) TotalLines() int {
	total := 0
	for _, src := range s.Sources {
		total += src.Lines
	}
	return total
}

// Failed returns the sources that ended with an error, sorted by ID.
func (s Snapshot) Failed() []SourceState {
	var failed []SourceState
	for _, src := range s.Sources {
		if src.Status == StatusFailed {
			failed = append(failed, src)
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].ID < failed[j].ID })
	return failed
}

// Store coordinates concurrent updates from workers and the multiplexer.
type Store struct {
	mu      sync.RWMutex
	order   []string
	sources map[string]*SourceState
	updated time.Time
}

// Track registers src as pending. Tracking an ID twice is a no-op.
func (s *Store) Track(src source.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sources == nil {
		s.sources = make(map[string]*SourceState)
	}
	if _, ok := s.sources[src.ID]; ok {
		return
	}
	s.sources[src.ID] = &SourceState{ID: src.ID, Kind: src.Kind, Status: StatusPending}
	s.order = append(s.order, src.ID)
	s.updated = time.Now()
}

// SetStatus moves a tracked source to status. err is recorded when non-nil.
// Unknown IDs are ignored.
func (s *Store) SetStatus(id string, status Status, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sources[id]
	if !ok {
		return
	}
	now := time.Now()
	st.Status = status
	if err != nil {
		st.LastError = err
	}
	switch {
	case status == StatusStreaming && st.StartedAt.IsZero():
		st.StartedAt = now
	case status.Terminal():
		st.EndedAt = now
	}
	s.updated = now
}

// CountLine records one delivered line for id.
func (s *Store) CountLine(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.sources[id]; ok {
		st.Lines++
		s.updated = time.Now()
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{LastUpdated: s.updated}
	if len(s.order) == 0 {
		return snap
	}
	snap.Sources = make([]SourceState, 0, len(s.order))
	for _, id := range s.order {
		st := *s.sources[id]
		if st.LastError != nil {
			st.LastError = fmt.Errorf("%w", st.LastError)
		}
		snap.Sources = append(snap.Sources, st)
	}
	return snap
}
