package supervisor

import (
	"fmt"
	"sort"
	"sync"

	"github.com/five82/podtail/internal/source"
)

// Worker drives one source's stream.
type Worker struct {
	Source source.Source
	done   chan struct{}
	err    error
}

// Done is closed when the worker has finished.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Err returns the error the worker ended with. It is only meaningful after
// Done is closed; cancellation and normal completion both yield nil.
func (w *Worker) Err() error {
	select {
	case <-w.done:
		return w.err
	default:
		return nil
	}
}

// Registry maps source IDs to workers for one run. Entries are never removed.
type Registry struct {
	mu      sync.RWMutex
	workers map[string]*Worker
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{workers: make(map[string]*Worker)}
}

// Add registers a worker for src. A second worker for the same ID is an error.
func (r *Registry) Add(src source.Source) (*Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.workers[src.ID]; ok {
		return nil, fmt.Errorf("duplicate source %q", src.ID)
	}
	w := &Worker{Source: src, done: make(chan struct{})}
	r.workers[src.ID] = w
	return w, nil
}

// Get returns the worker registered for id.
func (r *Registry) Get(id string) (*Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workers[id]
	return w, ok
}

// Len returns the number of registered workers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workers)
}

// IDs returns the registered IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.workers))
	for id := range r.workers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
