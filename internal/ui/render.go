package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/podtail/internal/state"
)

// headerStatuses are the statuses counted in the header, in display order.
var headerStatuses = []struct {
	status state.Status
	label  string
}{
	{state.StatusStreaming, "streaming"},
	{state.StatusCompleted, "done"},
	{state.StatusFailed, "failed"},
	{state.StatusCancelled, "stopped"},
}

// renderHeader renders the top bar: name, mode, source counts and where
// lines are being saved.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{bg.Render("podtail", styles.Logo)}
	if m.mode != "" {
		parts = append(parts, bg.Render(m.mode, styles.AccentText))
	}

	counts := m.snapshot.Counts()
	for _, hs := range headerStatuses {
		n := counts[hs.status]
		if n == 0 && hs.status != state.StatusStreaming {
			continue
		}
		parts = append(parts,
			bg.Render(fmt.Sprintf("%d", n), styles.StatusStyle(hs.status))+bg.Spaces(1)+
				bg.Render(hs.label, styles.MutedText))
	}

	if m.width >= LayoutCompactWidth {
		parts = append(parts, bg.Render(fmt.Sprintf("%d lines", m.snapshot.TotalLines()), styles.FaintText))
		if failed := m.snapshot.Failed(); len(failed) > 0 {
			ids := make([]string, len(failed))
			for i, f := range failed {
				ids[i] = truncate(f.ID, 24)
			}
			parts = append(parts, bg.Render("failed: "+joinLimited(ids, ", ", 3), styles.DangerText))
		}
		if m.saveDir != "" {
			parts = append(parts, bg.Render("saving "+truncateMiddle(m.saveDir, 40), styles.FaintText))
		}
	}

	return bg.FillLine(styles.Header.Render(bg.Join(parts, 2)), m.width)
}

// renderStatus renders the bar below the log viewport.
func (m Model) renderStatus() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	var parts []string
	if m.follow {
		parts = append(parts, bg.Render("FOLLOW", styles.SuccessText))
	} else {
		parts = append(parts, bg.Render("PAUSED", styles.WarningText.Bold(true)))
	}

	switch {
	case m.search.active:
		parts = append(parts, bg.Render("/"+m.search.input.Value(), styles.AccentText))
	case m.search.err != "":
		parts = append(parts, bg.Render(m.search.err, styles.DangerText))
	case m.search.re != nil && len(m.search.matches) == 0:
		parts = append(parts, bg.Render("Pattern not found: "+m.search.query, styles.DangerText))
	case m.search.re != nil:
		parts = append(parts,
			bg.Render("/"+m.search.query, styles.AccentText)+bg.Spaces(1)+
				bg.Render(fmt.Sprintf("[%d/%d]", m.search.idx+1, len(m.search.matches)), styles.MutedText))
	}

	parts = append(parts, bg.Render(fmt.Sprintf("%d/%d", len(m.lines), LogBufferLimit), styles.FaintText))
	if m.dropped > 0 {
		parts = append(parts, bg.Render(fmt.Sprintf("%d dropped", m.dropped), styles.WarningText))
	}

	var hints []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		hints = append(hints, bg.Render(h.Key, styles.AccentText)+bg.Spaces(1)+bg.Render(strings.ToLower(h.Desc), styles.MutedText))
	}
	parts = append(parts, bg.Join(hints, 2))

	return bg.FillLine(styles.Footer.Render(bg.Join(parts, 3)), m.width)
}

// renderLogContent renders the buffered lines. While a search is active every
// matching line gets a gutter mark and the current match a brighter one.
func (m Model) renderLogContent() string {
	if len(m.lines) == 0 {
		return m.theme.Styles().FaintText.Render("Waiting for log lines...")
	}
	if m.search.re == nil {
		return strings.Join(m.lines, "\n")
	}

	matchMark := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Warning)).Render("▌")
	activeMark := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent)).Bold(true).Render("▶")

	active := -1
	if len(m.search.matches) > 0 {
		active = m.search.matches[m.search.idx]
	}
	matched := make(map[int]struct{}, len(m.search.matches))
	for _, idx := range m.search.matches {
		matched[idx] = struct{}{}
	}

	var b strings.Builder
	for i, line := range m.lines {
		if i > 0 {
			b.WriteString("\n")
		}
		switch _, ok := matched[i]; {
		case i == active:
			b.WriteString(activeMark)
		case ok:
			b.WriteString(matchMark)
		default:
			b.WriteString(" ")
		}
		b.WriteString(" ")
		b.WriteString(line)
	}
	return b.String()
}
