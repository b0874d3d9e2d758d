package logtail

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/five82/podtail/internal/source"
)

// Read returns at most maxLines from the end of the file at path. A negative
// maxLines returns every line.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	lines, _, err := tail(file, maxLines, true)
	return lines, err
}

// tail scans r once and keeps the last maxLines lines in a ring buffer.
// consumed is the byte offset just past the last complete line or oversized
// chunk. When partial
// is false an unterminated final line is left unread so a follower can pick
// it up once it is finished.
func tail(r io.Reader, maxLines int, partial bool) (lines []string, consumed int64, err error) {
	var ring []string
	if maxLines > 0 {
		ring = make([]string, maxLines)
	}

	scanner := source.NewScanner(r)
	scanner.Split(func(data []byte, atEOF bool) (int, []byte, error) {
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			consumed += int64(i + 1)
			return i + 1, data[:i], nil
		}
		if len(data) >= source.MaxLineBytes || (atEOF && partial && len(data) > 0) {
			consumed += int64(len(data))
			return len(data), data, nil
		}
		return 0, nil, nil
	})

	count := 0
	idx := 0
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		switch {
		case maxLines < 0:
			lines = append(lines, line)
		case maxLines > 0:
			ring[idx] = line
			idx = (idx + 1) % maxLines
			if count < maxLines {
				count++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log: %w", err)
	}
	if maxLines <= 0 {
		return lines, consumed, nil
	}

	lines = make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, consumed, nil
}

// splitLines appends the complete lines in data to out and returns the
// unterminated remainder.
func splitLines(data []byte, out []string) ([]string, []byte) {
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			return out, data
		}
		out = append(out, strings.TrimSuffix(string(data[:i]), "\r"))
		data = data[i+1:]
	}
}
