// Package highlight emphasizes log lines that look like failures.
package highlight

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fatih/color"
)

// failureTokens are matched at a word boundary, case-insensitively.
var failureTokens = []string{
	"error",
	"fatal",
	"panic",
	"exception",
	"crash",
	"timeout",
	"timed out",
	"failed",
	"failure",
	"refused",
	"bad gateway",
	"service unavailable",
	"traceback",
}

// structuredMarkers cover common JSON and logfmt level fields.
var structuredMarkers = []string{
	`"level":"error"`,
	`level=error`,
	`"severity":"error"`,
	`lvl=eror`,
}

// DefaultPattern is the expression used when no custom pattern is given. It
// matches from the first failure token to the end of the line.
var DefaultPattern = buildDefaultPattern()

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

func buildDefaultPattern() string {
	tokens := make([]string, len(failureTokens))
	for i, tok := range failureTokens {
		tokens[i] = regexp.QuoteMeta(tok)
	}
	markers := make([]string, len(structuredMarkers))
	for i, m := range structuredMarkers {
		markers[i] = regexp.QuoteMeta(m)
	}
	return `(?i)(?:\b(?:` + strings.Join(tokens, "|") + `)|` + strings.Join(markers, "|") + `).*`
}

// PatternError reports a custom highlight pattern that does not compile.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid highlight pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Highlighter wraps matched spans of a line with an emphasis marker.
// It is safe for concurrent use.
type Highlighter struct {
	re     *regexp.Regexp
	marker func(string) string
}

// Option customizes a Highlighter.
type Option func(*Highlighter)

// WithMarker replaces the default bold bright-red emphasis.
func WithMarker(marker func(string) string) Option {
	return func(h *Highlighter) {
		if marker != nil {
			h.marker = marker
		}
	}
}

// New builds a Highlighter. When enabled is false the result passes lines
// through untouched. A non-empty custom pattern replaces the default and is
// matched case-insensitively.
func New(enabled bool, custom string, opts ...Option) (*Highlighter, error) {
	emphasis := color.New(color.Bold, color.FgHiRed)
	h := &Highlighter{marker: func(s string) string { return emphasis.Sprint(s) }}
	for _, opt := range opts {
		opt(h)
	}
	if !enabled {
		return h, nil
	}

	pattern := DefaultPattern
	if custom = strings.TrimSpace(custom); custom != "" {
		pattern = "(?i)" + custom
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &PatternError{Pattern: custom, Err: err}
	}
	h.re = re
	return h, nil
}

// Enabled reports whether Apply can change lines.
func (h *Highlighter) Enabled() bool {
	return h != nil && h.re != nil
}

// Apply returns line with every matched span emphasized. Lines without a
// match come back unchanged.
func (h *Highlighter) Apply(line string) string {
	if !h.Enabled() || line == "" {
		return line
	}
	matches := h.re.FindAllStringIndex(line, -1)
	if len(matches) == 0 {
		return line
	}

	escapes := ansiEscape.FindAllStringIndex(line, -1)
	var b strings.Builder
	b.Grow(len(line) + 16)
	last := 0
	changed := false
	for _, m := range matches {
		start, end := m[0], m[1]
		if start == end || insideEscape(escapes, start) {
			continue
		}
		end = clampEnd(escapes, start, end)
		if end <= start {
			continue
		}
		b.WriteString(line[last:start])
		b.WriteString(h.marker(line[start:end]))
		last = end
		changed = true
	}
	if !changed {
		return line
	}
	b.WriteString(line[last:])
	return b.String()
}

func insideEscape(escapes [][]int, pos int) bool {
	for _, esc := range escapes {
		if pos >= esc[0] && pos < esc[1] {
			return true
		}
	}
	return false
}

// clampEnd pulls end back to the start of any escape sequence it would cut.
func clampEnd(escapes [][]int, start, end int) int {
	for _, esc := range escapes {
		if esc[0] >= start && esc[0] < end && end < esc[1] {
			return esc[0]
		}
	}
	return end
}
