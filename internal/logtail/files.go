package logtail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/five82/podtail/internal/source"
)

var errStreamClosed = errors.New("stream closed")

// Files treats regular files as sources. A namespace is a directory; with no
// namespace the working directory is listed.
type Files struct {
	logger *zap.Logger
}

// Option customizes Files.
type Option func(*Files)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Files) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New returns a file source backend.
func New(opts ...Option) *Files {
	f := &Files{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// List implements source.Discovery. Hidden files and directories are skipped.
func (f *Files) List(ctx context.Context, filter source.Filter) ([]source.Source, error) {
	candidates, err := source.ListNamespaces(ctx, filter.Namespaces, listDir)
	if err != nil {
		return nil, err
	}
	return source.Select(source.KindFile, candidates, filter)
}

func listDir(ctx context.Context, namespace string) ([]source.Candidate, error) {
	dir := namespace
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []source.Candidate
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, source.Candidate{
			Name:      e.Name(),
			Namespace: namespace,
			Meta:      map[string]string{"path": filepath.Join(dir, e.Name())},
		})
	}
	return out, nil
}

func sourcePath(src source.Source) string {
	if p := src.Meta["path"]; p != "" {
		return p
	}
	return filepath.Join(src.Namespace, src.Name)
}

// Open implements source.Reader. Without follow the stream yields the tail of
// the file and ends. With follow it then waits for writes; a truncated file
// is read again from the start and a removed or renamed file ends the stream.
func (f *Files) Open(ctx context.Context, src source.Source, opts source.ReadOptions) (source.Stream, error) {
	path := sourcePath(src)
	if !opts.Follow {
		lines, err := Read(path, opts.Tail)
		if err != nil {
			return nil, &source.LaunchError{Source: src.ID, Err: err}
		}
		return &sliceStream{lines: lines}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, &source.LaunchError{Source: src.ID, Err: err}
	}

	// Watch before reading so writes racing the tail are not lost. The
	// directory is watched because a removed file that is still open never
	// reports its own deletion.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = file.Close()
		return nil, &source.LaunchError{Source: src.ID, Err: fmt.Errorf("create watcher: %w", err)}
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		_ = file.Close()
		return nil, &source.LaunchError{Source: src.ID, Err: fmt.Errorf("watch %s: %w", path, err)}
	}

	lines, offset, err := tail(file, opts.Tail, false)
	if err != nil {
		_ = watcher.Close()
		_ = file.Close()
		return nil, &source.LaunchError{Source: src.ID, Err: err}
	}

	f.logger.Debug("following file",
		zap.String("source", src.ID),
		zap.String("path", path),
		zap.Int64("offset", offset))

	return &followStream{
		ctx:     ctx,
		path:    filepath.Clean(path),
		file:    file,
		watcher: watcher,
		offset:  offset,
		queue:   lines,
		done:    make(chan struct{}),
		logger:  f.logger.With(zap.String("source", src.ID)),
	}, nil
}

// sliceStream replays a fixed set of lines.
type sliceStream struct {
	lines []string
	next  int
}

func (s *sliceStream) Next() (string, error) {
	if s.next >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.next]
	s.next++
	return line, nil
}

func (s *sliceStream) Close() error { return nil }

type followStream struct {
	ctx     context.Context
	path    string
	file    *os.File
	watcher *fsnotify.Watcher
	logger  *zap.Logger

	offset  int64
	partial []byte
	queue   []string
	err     error

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func (s *followStream) Next() (string, error) {
	for {
		if len(s.queue) > 0 {
			line := s.queue[0]
			s.queue = s.queue[1:]
			return line, nil
		}
		if s.err != nil {
			return "", s.err
		}
		if err := s.readMore(); err != nil {
			s.err = err
			continue
		}
		if len(s.queue) > 0 {
			continue
		}
		s.wait()
	}
}

// wait blocks until the file changes or the stream ends.
func (s *followStream) wait() {
	select {
	case ev, ok := <-s.watcher.Events:
		if !ok {
			s.err = errStreamClosed
			return
		}
		if filepath.Clean(ev.Name) != s.path {
			return
		}
		if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
			s.logger.Debug("file went away", zap.String("op", ev.Op.String()))
			if err := s.readMore(); err == nil && len(s.partial) > 0 {
				s.queue = append(s.queue, string(s.partial))
				s.partial = nil
			}
			s.err = io.EOF
		}
	case err, ok := <-s.watcher.Errors:
		if !ok {
			s.err = errStreamClosed
			return
		}
		s.err = fmt.Errorf("watch: %w", err)
	case <-s.done:
		s.err = errStreamClosed
	case <-s.ctx.Done():
		s.err = s.ctx.Err()
	}
}

// readMore reads everything appended since the last read.
func (s *followStream) readMore() error {
	info, err := s.file.Stat()
	if err != nil {
		return fmt.Errorf("stat log: %w", err)
	}
	if info.Size() < s.offset {
		s.logger.Debug("file truncated", zap.Int64("size", info.Size()), zap.Int64("offset", s.offset))
		s.offset = 0
		s.partial = nil
	}
	if info.Size() == s.offset {
		return nil
	}

	data, err := io.ReadAll(io.NewSectionReader(s.file, s.offset, info.Size()-s.offset))
	if err != nil {
		return fmt.Errorf("read log: %w", err)
	}
	s.offset += int64(len(data))

	s.queue, s.partial = splitLines(append(s.partial, data...), s.queue)
	if len(s.partial) > source.MaxLineBytes {
		s.queue = append(s.queue, string(s.partial))
		s.partial = nil
	}
	return nil
}

func (s *followStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = errors.Join(s.watcher.Close(), s.file.Close())
	})
	return s.closeErr
}
