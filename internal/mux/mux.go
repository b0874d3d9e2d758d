// Package mux serializes log lines from many concurrent sources onto one
// output.
//
// Workers hand lines to Deliver; a single goroutine owned by the
// Multiplexer formats, highlights, persists, and emits them. Because only
// that goroutine touches the sink, records are never interleaved.
package mux

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/five82/podtail/internal/highlight"
	"github.com/five82/podtail/internal/source"
)

// DefaultBuffer is the capacity of the delivery channel.
const DefaultBuffer = 256

// ErrClosed is returned by Deliver after Close.
var ErrClosed = errors.New("multiplexer closed")

// Record is one formatted output line.
type Record struct {
	Source source.Source
	Raw    string // text as read from the source
	Text   string // text after highlighting
	Line   string // "<tag>:<text>"
}

// Sink receives complete records, one call per line.
type Sink interface {
	Emit(rec Record) error
}

// WriterSink writes each record's Line to w with a single Write call.
type WriterSink struct {
	W io.Writer
}

// Emit implements Sink.
func (s WriterSink) Emit(rec Record) error {
	_, err := io.WriteString(s.W, rec.Line+"\n")
	return err
}

// Persister stores raw lines per source.
type Persister interface {
	Record(sourceID, line string) error
}

// Counter is told about every emitted line.
type Counter interface {
	CountLine(id string)
}

// Multiplexer is the single consumer of all source lines.
type Multiplexer struct {
	sink        Sink
	highlighter *highlight.Highlighter
	persister   Persister
	counter     Counter
	logger      *zap.Logger
	buffer      int

	in        chan source.LogLine
	done      chan struct{}
	startOnce sync.Once

	mu     sync.RWMutex
	closed bool

	// Owned by the run loop until done is closed.
	persistFailed map[string]bool
	emitErr       error
}

// Option customizes a Multiplexer.
type Option func(*Multiplexer)

// WithHighlighter applies h to every line before emitting it.
func WithHighlighter(h *highlight.Highlighter) Option {
	return func(m *Multiplexer) { m.highlighter = h }
}

// WithPersister records every raw line through p.
func WithPersister(p Persister) Option {
	return func(m *Multiplexer) { m.persister = p }
}

// WithCounter reports every emitted line to c.
func WithCounter(c Counter) Option {
	return func(m *Multiplexer) { m.counter = c }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Multiplexer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithBuffer sets the delivery channel capacity.
func WithBuffer(n int) Option {
	return func(m *Multiplexer) {
		if n >= 0 {
			m.buffer = n
		}
	}
}

// New returns a Multiplexer emitting to sink. Call Start before delivering.
func New(sink Sink, opts ...Option) *Multiplexer {
	m := &Multiplexer{
		sink:          sink,
		logger:        zap.NewNop(),
		buffer:        DefaultBuffer,
		done:          make(chan struct{}),
		persistFailed: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.in = make(chan source.LogLine, m.buffer)
	return m
}

// Start launches the output goroutine. Calling it more than once is a no-op.
func (m *Multiplexer) Start() {
	m.startOnce.Do(func() {
		go m.run()
	})
}

// Deliver queues line for output. It blocks while the queue is full and
// returns ctx.Err() if ctx ends first.
func (m *Multiplexer) Deliver(ctx context.Context, line source.LogLine) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}
	select {
	case m.in <- line:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting lines, waits until every queued line has been
// emitted, and returns the first sink error, if any.
func (m *Multiplexer) Close() error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.in)
	}
	m.mu.Unlock()

	m.Start()
	<-m.done
	return m.emitErr
}

func (m *Multiplexer) run() {
	defer close(m.done)
	for line := range m.in {
		m.handle(line)
	}
}

func (m *Multiplexer) handle(line source.LogLine) {
	id := line.Source.ID
	if m.persister != nil {
		if err := m.persister.Record(id, line.Text); err != nil && !m.persistFailed[id] {
			m.persistFailed[id] = true
			m.logger.Warn("persist failed; further errors for this source are suppressed",
				zap.String("source", id),
				zap.Error(err))
		}
	}

	text := m.highlighter.Apply(line.Text)
	rec := Record{
		Source: line.Source,
		Raw:    line.Text,
		Text:   text,
		Line:   line.Source.Tag() + ":" + text,
	}
	if err := m.sink.Emit(rec); err != nil {
		if m.emitErr == nil {
			m.emitErr = err
			m.logger.Error("emit failed", zap.String("source", id), zap.Error(err))
		}
		return
	}
	if m.counter != nil {
		m.counter.CountLine(id)
	}
}
