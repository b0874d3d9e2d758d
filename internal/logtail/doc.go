// Package logtail tails local log files as podtail sources.
//
// # Overview
//
// Files is both the discovery and the reader for the "file" source kind.
// Each regular file in a namespace directory becomes a source; the namespace
// defaults to the working directory. Reading starts with the last N lines of
// the file and, in follow mode, continues with whatever is appended.
//
// # Reading the Tail
//
// The tail is taken in one pass with a ring buffer of size N:
//
//	1. Allocate ring buffer of size N
//	2. For each complete line in the file:
//	   - Store line at current index
//	   - Increment index (wrapping at N)
//	   - Track total lines seen and the byte offset after the line
//	3. If total < N:
//	   - Return first 'count' entries from buffer
//	4. If total >= N:
//	   - Return buffer starting from current index (oldest line)
//
// Memory stays O(N) regardless of file size. A negative N keeps every line;
// zero keeps none but still records the offset.
//
// # Following
//
// Follow mode registers an fsnotify watch on the file before the tail is
// read, so nothing written in between is lost. After that:
//
//   - Write events read from the saved offset to the current size
//   - A size below the offset means truncation; reading restarts at 0
//   - An unterminated final line is held until its newline arrives
//   - Remove or Rename flushes what is left and ends the stream with io.EOF
//
// Close stops the watcher and closes the file, which unblocks a pending Next.
//
// # Line Limits
//
// Lines use the same limits as process-backed streams: 64KB initial buffer
// and 1MB maximum. A partial line that grows past 1MB while following is
// emitted as is.
package logtail
