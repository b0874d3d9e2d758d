package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/podtail/internal/state"
)

// Theme is a named palette for the log view. Status colors derive from the
// semantic colors so every theme stays consistent.
type Theme struct {
	Name string

	Background string // behind overlays
	Surface    string // header and status bars

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
}

// DefaultThemeName is used when no preference has been saved.
const DefaultThemeName = "Nightfox"

// Palettes from nightfox.nvim, kanagawa.nvim and the Tailwind slate scale.
var themeList = []Theme{
	{Name: "Nightfox", Background: "#131a24", Surface: "#192330",
		Text: "#cdcecf", Muted: "#738091", Faint: "#71839b", Accent: "#719cd6",
		Success: "#81b29a", Warning: "#dbc074", Danger: "#c94f6d"},
	{Name: "Kanagawa", Background: "#16161D", Surface: "#1F1F28",
		Text: "#DCD7BA", Muted: "#C8C093", Faint: "#727169", Accent: "#7E9CD8",
		Success: "#98BB6C", Warning: "#E6C384", Danger: "#E46876"},
	{Name: "Slate", Background: "#020617", Surface: "#0f172a",
		Text: "#f1f5f9", Muted: "#94a3b8", Faint: "#64748b", Accent: "#38bdf8",
		Success: "#22c55e", Warning: "#f59e0b", Danger: "#ef4444"},
}

// GetTheme returns the named theme, falling back to the default.
func GetTheme(name string) Theme {
	for _, t := range themeList {
		if t.Name == name {
			return t
		}
	}
	return themeList[0]
}

// NextTheme returns the theme after current in the cycle.
func NextTheme(current string) string {
	for i, t := range themeList {
		if t.Name == current {
			return themeList[(i+1)%len(themeList)].Name
		}
	}
	return themeList[0].Name
}

// ThemeNames lists the themes in cycle order.
func ThemeNames() []string {
	names := make([]string, len(themeList))
	for i, t := range themeList {
		names[i] = t.Name
	}
	return names
}

// StatusColor maps a source status onto the palette.
func (t Theme) StatusColor(status state.Status) string {
	switch status {
	case state.StatusStreaming:
		return t.Accent
	case state.StatusCompleted:
		return t.Success
	case state.StatusFailed:
		return t.Danger
	case state.StatusCancelled:
		return t.Warning
	}
	return t.Faint
}

// Styles holds the lipgloss styles rendered with a theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style

	Header lipgloss.Style
	Footer lipgloss.Style
	Logo   lipgloss.Style

	theme Theme
}

// Styles builds the style set for t.
func (t Theme) Styles() Styles {
	fg := func(c string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
	bar := func(c string) lipgloss.Style {
		return fg(c).Background(lipgloss.Color(t.Surface)).Padding(0, 1)
	}
	return Styles{
		Text:        fg(t.Text),
		MutedText:   fg(t.Muted),
		FaintText:   fg(t.Faint),
		AccentText:  fg(t.Accent),
		SuccessText: fg(t.Success).Bold(true),
		WarningText: fg(t.Warning),
		DangerText:  fg(t.Danger).Bold(true),
		Header:      bar(t.Text),
		Footer:      bar(t.Muted),
		Logo:        fg(t.Warning).Bold(true),
		theme:       t,
	}
}

// StatusStyle returns the bold foreground style for a source status.
func (s Styles) StatusStyle(status state.Status) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(s.theme.StatusColor(status))).Bold(true)
}
