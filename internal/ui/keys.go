package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the log view.
type keyMap struct {
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Escape     key.Binding

	Up           key.Binding
	Down         key.Binding
	Top          key.Binding
	Bottom       key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	HalfPageUp   key.Binding
	HalfPageDown key.Binding

	ToggleFollow key.Binding
	Search       key.Binding
	NextMatch    key.Binding
	PrevMatch    key.Binding
	Confirm      key.Binding
}

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit:       bind("q", "Quit", "ctrl+c", "q"),
		Help:       bind("h/?", "Toggle help", "h", "?"),
		CycleTheme: bind("T", "Cycle theme", "T"),
		Escape:     bind("esc", "Clear search", "esc"),

		Up:           bind("k/up", "Scroll up", "k", "up"),
		Down:         bind("j/down", "Scroll down", "j", "down"),
		Top:          bind("g", "Oldest line", "g", "home"),
		Bottom:       bind("G", "Newest line, follow", "G", "end"),
		PageUp:       bind("pgup", "Page up", "pgup"),
		PageDown:     bind("pgdown", "Page down", "pgdown"),
		HalfPageUp:   bind("ctrl+u", "Half page up", "ctrl+u"),
		HalfPageDown: bind("ctrl+d", "Half page down", "ctrl+d"),

		ToggleFollow: bind("space", "Toggle follow", " "),
		Search:       bind("/", "Search lines", "/"),
		NextMatch:    bind("n", "Next match", "n"),
		PrevMatch:    bind("N", "Previous match", "N"),
		Confirm:      bind("enter", "Run search", "enter"),
	}
}

// ShortHelp returns key bindings for the status bar hint.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ToggleFollow, k.Search, k.Help, k.Quit}
}

// FullHelp returns key bindings grouped for the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom, k.PageUp, k.PageDown, k.HalfPageDown, k.HalfPageUp},
		{k.ToggleFollow, k.Search, k.NextMatch, k.PrevMatch, k.Escape},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
