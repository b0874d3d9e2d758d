package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// ErrorMarker prefixes errors printed outside the TUI.
const ErrorMarker = "✗ error:"

var errorMarkerStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color(GetTheme(DefaultThemeName).Danger)).
	Bold(true)

// FormatError renders err behind the styled error marker. Color is dropped
// automatically when the output is not a terminal.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	return errorMarkerStyle.Render(ErrorMarker) + " " + err.Error()
}

// PrintError writes FormatError(err) and a newline to w.
func PrintError(w io.Writer, err error) {
	if err == nil {
		return
	}
	_, _ = fmt.Fprintln(w, FormatError(err))
}
