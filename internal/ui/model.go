package ui

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/five82/podtail/internal/prefs"
	"github.com/five82/podtail/internal/state"
)

// Options configures the UI.
type Options struct {
	Store      *state.Store
	Sink       *Sink
	Mode       string // shown in the header, e.g. "follow"
	SaveDir    string // shown in the header when lines are persisted
	ThemeName  string
	LastSearch string // prefilled when the search prompt opens
	PrefsPath  string
	Tick       time.Duration
}

// searchState holds the "/" search over the log buffer.
type searchState struct {
	active  bool
	input   textinput.Model
	query   string
	re      *regexp.Regexp
	err     string
	matches []int // buffer indices of matching lines
	idx     int   // current match
	last    string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	store     *state.Store
	sink      *Sink
	mode      string
	saveDir   string
	prefsPath string
	tick      time.Duration
	keys      keyMap

	// UI state
	theme    Theme
	width    int
	height   int
	ready    bool
	showHelp bool

	// Data state
	snapshot state.Snapshot
	lines    []string
	dropped  int

	// Log state
	follow   bool
	viewport viewport.Model
	search   searchState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = DefaultThemeName
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	ti := textinput.New()
	ti.Placeholder = "Search logs..."
	ti.CharLimit = SearchInputLimit

	return Model{
		store:     opts.Store,
		sink:      opts.Sink,
		mode:      opts.Mode,
		saveDir:   opts.SaveDir,
		prefsPath: prefsPath,
		tick:      tick,
		keys:      DefaultKeyMap(),
		theme:     GetTheme(themeName),
		follow:    true,
		search:    searchState{input: ti, last: opts.LastSearch},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd(m.tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// header and status bar take one row each
		vpHeight := maxInt(m.height-2, 1)
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.refreshContent()
		return m, nil

	case tickMsg:
		m.pull()
		return m, tickCmd(m.tick)
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	return b.String()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}
	if m.search.active {
		return m.handleSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		m.refreshContent()

	case key.Matches(msg, m.keys.ToggleFollow):
		m.follow = !m.follow
		if m.follow {
			m.viewport.GotoBottom()
		}

	case key.Matches(msg, m.keys.Search):
		m.search.active = true
		m.search.err = ""
		m.search.input.SetValue(m.search.last)
		m.search.input.CursorEnd()
		return m, m.search.input.Focus()

	case key.Matches(msg, m.keys.NextMatch):
		m.jumpToMatch(1)

	case key.Matches(msg, m.keys.PrevMatch):
		m.jumpToMatch(-1)

	case key.Matches(msg, m.keys.Escape):
		m.clearSearch()

	case key.Matches(msg, m.keys.Up):
		m.follow = false
		m.viewport.LineUp(1)

	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)

	case key.Matches(msg, m.keys.PageUp):
		m.follow = false
		m.viewport.ViewUp()

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()

	case key.Matches(msg, m.keys.HalfPageUp):
		m.follow = false
		m.viewport.HalfViewUp()

	case key.Matches(msg, m.keys.HalfPageDown):
		m.viewport.HalfViewDown()

	case key.Matches(msg, m.keys.Top):
		m.follow = false
		m.viewport.GotoTop()

	case key.Matches(msg, m.keys.Bottom):
		m.follow = true
		m.viewport.GotoBottom()
	}

	return m, nil
}

// handleSearchInput handles keyboard input while the search prompt is open.
func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		query := m.search.input.Value()
		m.search.active = false
		m.search.input.Blur()
		if strings.TrimSpace(query) == "" {
			m.clearSearch()
			return m, nil
		}
		re, err := regexp.Compile("(?i)" + query)
		if err != nil {
			m.search.err = "invalid pattern: " + query
			return m, nil
		}
		m.search.re = re
		m.search.query = query
		m.search.idx = 0
		if m.search.last != query {
			m.search.last = query
			m.savePrefs()
		}
		m.refreshContent()
		if len(m.search.matches) > 0 {
			// start from the newest match
			m.search.idx = len(m.search.matches) - 1
			m.jumpToMatch(0)
		}
		return m, nil

	case msg.Type == tea.KeyEsc || msg.Type == tea.KeyCtrlC:
		m.search.active = false
		m.search.input.Blur()
		m.search.input.SetValue("")
		return m, nil
	}

	var cmd tea.Cmd
	m.search.input, cmd = m.search.input.Update(msg)
	return m, cmd
}

// savePrefs persists the theme and last search. Errors are ignored.
func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, LastSearch: m.search.last})
}

// clearSearch drops the active pattern and its highlights.
func (m *Model) clearSearch() {
	m.search.re = nil
	m.search.query = ""
	m.search.err = ""
	m.search.matches = nil
	m.search.idx = 0
	m.refreshContent()
}

// jumpToMatch moves the current match by delta, scrolls it into view and
// pauses follow.
func (m *Model) jumpToMatch(delta int) {
	n := len(m.search.matches)
	if n == 0 {
		return
	}
	m.search.idx = ((m.search.idx+delta)%n + n) % n
	m.follow = false
	m.refreshContent()
	line := m.search.matches[m.search.idx]
	m.viewport.SetYOffset(maxInt(line-m.viewport.Height/2, 0))
}

// pull moves buffered lines and source status into the model.
func (m *Model) pull() {
	if m.store != nil {
		m.snapshot = m.store.Snapshot()
	}
	if m.sink == nil {
		return
	}
	lines, dropped := m.sink.Drain()
	if len(lines) == 0 && dropped == 0 {
		return
	}
	m.dropped += dropped
	m.lines = trimLogBuffer(append(m.lines, lines...), LogBufferLimit)
	m.refreshContent()
}

// refreshContent recomputes search matches and re-renders the viewport.
func (m *Model) refreshContent() {
	m.findMatches()
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderLogContent())
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) findMatches() {
	m.search.matches = m.search.matches[:0]
	if m.search.re == nil {
		return
	}
	for i, line := range m.lines {
		if m.search.re.MatchString(ansi.Strip(line)) {
			m.search.matches = append(m.search.matches, i)
		}
	}
	if m.search.idx >= len(m.search.matches) {
		m.search.idx = maxInt(len(m.search.matches)-1, 0)
	}
}

// trimLogBuffer keeps the newest limit lines.
func trimLogBuffer(lines []string, limit int) []string {
	if limit <= 0 || len(lines) <= limit {
		return lines
	}
	return append([]string(nil), lines[len(lines)-limit:]...)
}

// Messages

type tickMsg time.Time

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled. Cancellation is not an error.
func Run(ctx context.Context, opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
