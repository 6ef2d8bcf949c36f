// Package tui is the live timeline viewer.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vburojevic/buildtl/internal/domain"
	"github.com/vburojevic/buildtl/internal/layout"
	"github.com/vburojevic/buildtl/internal/output"
	"github.com/vburojevic/buildtl/internal/timeline"
)

// DefaultRefresh is the redraw interval while units are running
const DefaultRefresh = 500 * time.Millisecond

// Source is the part of the recorder the viewer needs
type Source interface {
	Snapshot() *domain.Session
	Now() time.Time
	SetLockState(locked bool)
	Locked() bool
	Clear()
	Invalidate()
}

// StorageChangedMsg tells the model another process wrote the session
type StorageChangedMsg struct{}

type tickMsg time.Time

// Model renders the recorder's published snapshot
type Model struct {
	src         Source
	storage     string
	refresh     time.Duration
	showReloads bool

	width    int
	help     help.Model
	showHelp bool

	session    *domain.Session
	lastReload time.Time
}

// New creates a viewer over src. storage is only displayed.
func New(src Source, storage string, refresh time.Duration, showReloads bool) Model {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	m := Model{
		src:         src,
		storage:     storage,
		refresh:     refresh,
		showReloads: showReloads,
		width:       80,
		help:        help.New(),
	}
	m.session = src.Snapshot()
	return m
}

// Init starts the refresh ticker
func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles keys, ticks and storage notifications
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Lock):
			m.src.SetLockState(!m.src.Locked())
		case key.Matches(msg, keys.Clear):
			m.src.Clear()
		case key.Matches(msg, keys.Refresh):
			m.src.Invalidate()
			m.lastReload = m.src.Now()
		case key.Matches(msg, keys.Reloads):
			m.showReloads = !m.showReloads
		case key.Matches(msg, keys.Help):
			m.showHelp = !m.showHelp
		}
		m.session = m.src.Snapshot()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case StorageChangedMsg:
		m.src.Invalidate()
		m.lastReload = m.src.Now()
		m.session = m.src.Snapshot()
		return m, nil

	case tickMsg:
		m.session = m.src.Snapshot()
		return m, m.tick()
	}
	return m, nil
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	lockedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// View draws the header, one bar per slot, the report line and help
func (m Model) View() string {
	now := m.src.Now()
	tl := layout.Build(m.session, now, layout.Options{ShowReloads: m.showReloads})
	rows := layout.Rows(m.session, tl)
	report := timeline.Summarize(m.session, now)

	var b strings.Builder
	header := titleStyle.Render("buildtl")
	if m.src.Locked() {
		header += " " + lockedStyle.Render("[locked]")
	}
	if m.storage != "" {
		header += " " + dimStyle.Render(m.storage)
	}
	b.WriteString(header + "\n\n")

	if len(rows) == 0 {
		b.WriteString(dimStyle.Render("Waiting for a compilation...") + "\n")
	} else {
		b.WriteString(output.RenderBars(rows, tl.Slots, tl.Total, m.barWidth(), true))
		b.WriteString("\n")
	}

	b.WriteString(summaryLine(report, tl.Slots) + "\n")
	if !m.lastReload.IsZero() {
		b.WriteString(dimStyle.Render(fmt.Sprintf("reloaded %s ago", output.FormatDuration(now.Sub(m.lastReload)))) + "\n")
	}

	b.WriteString("\n")
	if m.showHelp {
		b.WriteString(m.help.FullHelpView(keys.FullHelp()))
	} else {
		b.WriteString(m.help.ShortHelpView(keys.ShortHelp()))
	}
	return b.String()
}

// barWidth leaves room for the slot label and borders
func (m Model) barWidth() int {
	return max(m.width-12, 10)
}

func summaryLine(r timeline.Report, slots int) string {
	parts := []string{
		fmt.Sprintf("%d iterations", r.Iterations),
		fmt.Sprintf("%d units in %d slots", r.Units, slots),
		"total " + output.FormatDuration(r.Total),
		"compile " + output.FormatDuration(r.Compilation),
		"units " + output.FormatDuration(r.UnitSpan),
		"reload " + output.FormatDuration(r.Reload),
	}
	if r.Errors > 0 || r.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%dE/%dW", r.Errors, r.Warnings))
	}
	if r.Running {
		parts = append(parts, "compiling")
	}
	return strings.Join(parts, " · ")
}
