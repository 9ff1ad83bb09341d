// Package tui renders the shop-floor wallboard: one colored tile per
// machine fed from the snapshot file, refreshed every second.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Atot4/iot-project/internal/appconfig"
	"github.com/Atot4/iot-project/internal/register"
	"github.com/Atot4/iot-project/internal/snapshot"
)

// tickMsg drives the periodic snapshot reload.
type tickMsg time.Time

// Model is the Bubble Tea model for the machine wallboard.
type Model struct {
	path    string
	order   []string
	running map[string]bool
	idle    map[string]bool

	state   register.State
	readErr error

	width  int
	height int
	ready  bool
}

// NewModel creates a wallboard model reading the given snapshot file.
func NewModel(cfg *appconfig.Config) Model {
	return Model{
		path:    cfg.Snapshot.Path,
		order:   cfg.DisplayOrder,
		running: cfg.Vocabulary.RunningSet(),
		idle:    cfg.Vocabulary.IdleSet(),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case tickMsg:
		state, err := snapshot.ReadFile(m.path)
		m.state, m.readErr = state, err
		return m, tick()
	}

	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var sections []string

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(colorPrimary).
		Width(m.width).
		Padding(0, 1).
		Render(" machinemon")
	sections = append(sections, title)

	switch {
	case m.readErr != nil:
		sections = append(sections, staleStyle.Render(fmt.Sprintf("  snapshot unavailable: %v", m.readErr)))
	case len(m.state) == 0:
		sections = append(sections, labelStyle.Render("  no machines in snapshot"))
	default:
		sections = append(sections, m.renderTiles())
	}

	sections = append(sections, helpStyle.Render("  q: quit"))
	return strings.Join(sections, "\n")
}

// renderTiles lays machine tiles out in rows, configured display order
// first and any remaining machines alphabetically after.
func (m Model) renderTiles() string {
	names := make([]string, 0, len(m.state))
	seen := make(map[string]bool, len(m.state))
	for _, name := range m.order {
		if _, ok := m.state[name]; ok {
			names = append(names, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(m.state))
	for name := range m.state {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	names = append(names, rest...)

	tileWidth := 30
	perRow := m.width / (tileWidth + 2)
	if perRow < 1 {
		perRow = 1
	}

	now := time.Now()
	var rows []string
	for i := 0; i < len(names); i += perRow {
		end := i + perRow
		if end > len(names) {
			end = len(names)
		}
		tiles := make([]string, 0, perRow)
		for _, name := range names[i:end] {
			tiles = append(tiles, renderTile(name, m.state[name], m.running, m.idle, now, tileWidth))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, tiles...))
	}
	return strings.Join(rows, "\n")
}

// Run starts the wallboard in fullscreen mode.
func Run(cfg *appconfig.Config) error {
	p := tea.NewProgram(NewModel(cfg), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
