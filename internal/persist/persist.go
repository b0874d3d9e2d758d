// Package persist writes each source's raw log lines to a flat file in the
// save directory.
package persist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Writer appends lines to one file per source. Files are opened on first use
// and kept open until Close.
type Writer struct {
	dir string
	now func() time.Time

	mu     sync.Mutex
	files  map[string]*os.File
	paths  map[string]string
	closed bool
}

// Option customizes a Writer.
type Option func(*Writer)

// WithClock overrides the time used to date file names.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

// New returns a Writer that stores files under dir. The directory is created
// when the first line is recorded.
func New(dir string, opts ...Option) (*Writer, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("save directory is empty")
	}
	w := &Writer{
		dir:   dir,
		now:   time.Now,
		files: make(map[string]*os.File),
		paths: make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// FileName returns the file name used for sourceID on the given date.
func FileName(sourceID string, t time.Time) string {
	safe := strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(sourceID)
	return fmt.Sprintf("%s-date-%s.log", safe, t.Format("01-02-2006"))
}

// Record appends line and a newline to the source's file.
func (w *Writer) Record(sourceID, line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("persist writer closed")
	}
	f, err := w.open(sourceID)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write %s: %w", f.Name(), err)
	}
	return nil
}

func (w *Writer) open(sourceID string) (*os.File, error) {
	if f, ok := w.files[sourceID]; ok {
		return f, nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	path := filepath.Join(w.dir, FileName(sourceID, w.now()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	w.files[sourceID] = f
	w.paths[sourceID] = path
	return f, nil
}

// Path returns the file backing sourceID, or "" if nothing was recorded yet.
func (w *Writer) Path(sourceID string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paths[sourceID]
}

// Dir returns the save directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Close closes every open file. Further Records fail.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	var errs []error
	for id, f := range w.files {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
	}
	w.files = nil
	return errors.Join(errs...)
}
