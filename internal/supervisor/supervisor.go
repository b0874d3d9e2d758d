// Package supervisor runs one worker per log source and decides when a run
// is over.
//
// In follow mode a run lasts until its context is cancelled; every stream is
// then closed and the workers are joined. In bounded mode the run lasts until
// every worker has finished reading. A source that never finishes stalls a
// bounded run until it is interrupted.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/five82/podtail/internal/source"
	"github.com/five82/podtail/internal/state"
)

// Mode selects the termination policy.
type Mode int

const (
	// ModeBounded ends the run once every stream has ended.
	ModeBounded Mode = iota
	// ModeFollow ends the run only when its context is cancelled.
	ModeFollow
)

// ModeFor maps a follow flag to a Mode.
func ModeFor(follow bool) Mode {
	if follow {
		return ModeFollow
	}
	return ModeBounded
}

func (m Mode) String() string {
	if m == ModeFollow {
		return "follow"
	}
	return "bounded"
}

// Deliverer accepts lines from workers.
type Deliverer interface {
	Deliver(ctx context.Context, line source.LogLine) error
}

// Tracker records per-source lifecycle changes.
type Tracker interface {
	Track(src source.Source)
	SetStatus(id string, status state.Status, err error)
}

// ReportFunc tells the user that a source failed.
type ReportFunc func(src source.Source, err error)

// Supervisor spawns and joins workers.
type Supervisor struct {
	reader  source.Reader
	out     Deliverer
	tracker Tracker
	report  ReportFunc
	logger  *zap.Logger
	seed    int64
	colors  []*color.Color

	registry atomic.Pointer[Registry]
}

// Option customizes a Supervisor.
type Option func(*Supervisor)

// WithTracker records worker status changes in t.
func WithTracker(t Tracker) Option {
	return func(s *Supervisor) { s.tracker = t }
}

// WithReporter sets the function used to surface source failures.
func WithReporter(fn ReportFunc) Option {
	return func(s *Supervisor) { s.report = fn }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSeed fixes the color assignment order. Zero means time-based.
func WithSeed(seed int64) Option {
	return func(s *Supervisor) { s.seed = seed }
}

// WithPalette replaces the default source colors.
func WithPalette(colors []*color.Color) Option {
	return func(s *Supervisor) { s.colors = colors }
}

// New returns a Supervisor that opens streams with reader and hands their
// lines to out.
func New(reader source.Reader, out Deliverer, opts ...Option) *Supervisor {
	s := &Supervisor{
		reader: reader,
		out:    out,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.report == nil {
		s.report = func(src source.Source, err error) {
			s.logger.Error("source failed", zap.String("source", src.ID), zap.Error(err))
		}
	}
	return s
}

// Registry returns the registry of the current or most recent run, or nil
// before the first run.
func (s *Supervisor) Registry() *Registry {
	return s.registry.Load()
}

// Run tails every source until the mode's termination condition is met.
// Cancelling ctx is a normal way to end a run and is not reported as an error.
func (s *Supervisor) Run(ctx context.Context, sources []source.Source, mode Mode, opts source.ReadOptions) error {
	if len(sources) == 0 {
		return fmt.Errorf("start workers: %w", source.ErrNotFound)
	}

	colored := source.NewPalette(s.seed, s.colors).Assign(sources)
	registry := NewRegistry()
	workers := make([]*Worker, 0, len(colored))
	for _, src := range colored {
		w, err := registry.Add(src)
		if err != nil {
			return fmt.Errorf("register workers: %w", err)
		}
		workers = append(workers, w)
	}
	s.registry.Store(registry)
	for _, w := range workers {
		s.track(w.Source)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.logger.Debug("spawning workers",
		zap.Int("sources", len(workers)),
		zap.Stringer("mode", mode),
		zap.Int("tail", opts.Tail))

	var wg sync.WaitGroup
	for _, w := range workers {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.work(runCtx, w, opts)
		}()
	}

	if mode == ModeFollow {
		<-ctx.Done()
		s.logger.Debug("run interrupted; stopping workers")
		cancel()
	}
	wg.Wait()
	return nil
}

func (s *Supervisor) work(ctx context.Context, w *Worker, opts source.ReadOptions) {
	defer close(w.done)
	src := w.Source
	logger := s.logger.With(zap.String("source", src.ID))

	stream, err := s.reader.Open(ctx, src, opts)
	if err != nil {
		if ctx.Err() != nil {
			s.setStatus(src.ID, state.StatusCancelled, nil)
			return
		}
		var launchErr *source.LaunchError
		if !errors.As(err, &launchErr) {
			err = &source.LaunchError{Source: src.ID, Err: err}
		}
		s.fail(w, err)
		return
	}
	defer stream.Close()

	// Closing the stream is what unblocks Next on cancellation.
	stop := context.AfterFunc(ctx, func() { _ = stream.Close() })
	defer stop()

	s.setStatus(src.ID, state.StatusStreaming, nil)
	logger.Debug("stream opened")

	for {
		line, err := stream.Next()
		if err != nil {
			s.finish(ctx, w, err)
			return
		}
		if err := s.out.Deliver(ctx, source.LogLine{Source: src, Text: line}); err != nil {
			s.finish(ctx, w, err)
			return
		}
	}
}

func (s *Supervisor) finish(ctx context.Context, w *Worker, err error) {
	id := w.Source.ID
	switch {
	case ctx.Err() != nil:
		s.setStatus(id, state.StatusCancelled, nil)
		s.logger.Debug("stream cancelled", zap.String("source", id))
	case errors.Is(err, io.EOF):
		s.setStatus(id, state.StatusCompleted, nil)
		s.logger.Debug("stream ended", zap.String("source", id))
	default:
		s.fail(w, err)
	}
}

func (s *Supervisor) fail(w *Worker, err error) {
	w.err = err
	s.setStatus(w.Source.ID, state.StatusFailed, err)
	s.report(w.Source, err)
}

func (s *Supervisor) track(src source.Source) {
	if s.tracker != nil {
		s.tracker.Track(src)
	}
}

func (s *Supervisor) setStatus(id string, status state.Status, err error) {
	if s.tracker != nil {
		s.tracker.SetStatus(id, status, err)
	}
}
