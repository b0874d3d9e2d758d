package source

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
)

const scanBufferInitial = 64 * 1024

// MaxLineBytes is the longest line handed out whole. Longer lines arrive in
// chunks of this size.
const MaxLineBytes = 1024 * 1024

// NewScanner returns a line scanner sized for log output (64KB initial
// buffer) that splits with ScanLines.
func NewScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, scanBufferInitial), MaxLineBytes)
	scanner.Split(ScanLines)
	return scanner
}

// ScanLines splits on '\n' like bufio.ScanLines but emits a full buffer as a
// chunk instead of failing with bufio.ErrTooLong.
func ScanLines(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i], nil
	}
	if len(data) >= MaxLineBytes || (atEOF && len(data) > 0) {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// LineStream adapts a byte stream into a Stream of lines.
type LineStream struct {
	scanner   *bufio.Scanner
	wait      func() error
	closeFn   func() error
	closeOnce sync.Once
	closeErr  error
	done      bool
	err       error
}

// NewLineStream wraps r. Once r is exhausted, wait is called (if non-nil) to
// collect the producer's exit status; a non-nil result becomes the stream's
// terminal error instead of io.EOF. closeFn releases the producer.
func NewLineStream(r io.Reader, wait func() error, closeFn func() error) *LineStream {
	return &LineStream{
		scanner: NewScanner(r),
		wait:    wait,
		closeFn: closeFn,
	}
}

// Next implements Stream.
func (s *LineStream) Next() (string, error) {
	if s.done {
		return "", s.err
	}
	if s.scanner.Scan() {
		return strings.TrimSuffix(s.scanner.Text(), "\r"), nil
	}

	s.done = true
	readErr := s.scanner.Err()
	if readErr != nil {
		// The producer may be blocked writing to a pipe nobody reads.
		_ = s.Close()
	}
	var waitErr error
	if s.wait != nil {
		waitErr = s.wait()
	}
	switch {
	case readErr != nil:
		s.err = fmt.Errorf("read output: %w", readErr)
	case waitErr != nil:
		s.err = waitErr
	default:
		s.err = io.EOF
	}
	return "", s.err
}

// Close implements Stream. It is safe to call more than once.
func (s *LineStream) Close() error {
	s.closeOnce.Do(func() {
		if s.closeFn != nil {
			s.closeErr = s.closeFn()
		}
	})
	return s.closeErr
}
