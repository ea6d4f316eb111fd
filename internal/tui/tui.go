// Package tui provides a Bubble Tea TUI for viewing recorded sessions.
package tui

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/gaslog/internal/sessionlog"
)

// ── Styles ────────────

var (
	// Title bar at the very top
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	bulletStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	gapStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)
)

// ── Tab definitions ─────────────────

type tabID int

const (
	tabSummary tabID = iota
	tabReadings
	tabChart
	tabGaps
	tabCount
)

var tabNames = [tabCount]string{
	"Summary", "Readings", "Chart", "Gaps",
}

// ── Model ────────────────────

// Model is the root Bubble Tea model for the session viewer.
type Model struct {
	log       *sessionlog.Log
	filename  string
	activeTab tabID
	viewports [tabCount]viewport.Model
	width     int
	height    int
	ready     bool
	sortAsc   bool
}

// New creates a viewer for log. filename is shown in the title bar.
func New(log *sessionlog.Log, filename string) Model {
	return Model{
		log:      log,
		filename: filepath.Base(filename),
		sortAsc:  true,
	}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
			return m, nil
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
			return m, nil
		case "1", "2", "3", "4":
			m.activeTab = tabID(msg.String()[0] - '1')
			return m, nil
		case "s":
			if m.activeTab == tabReadings {
				m.sortAsc = !m.sortAsc
				m.viewports[tabReadings].SetContent(m.renderTab(tabReadings))
				m.viewports[tabReadings].GotoTop()
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  gaslog  " + m.filename)

	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %d %s ", i+1, tabNames[i])
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	content := m.viewports[m.activeTab].View()

	hint := "  ←/→ tab  ↑/↓ scroll  1-4 jump  q quit"
	if m.activeTab == tabReadings {
		dir := "newest first"
		if m.sortAsc {
			dir = "oldest first"
		}
		hint += "  s sort (" + dir + ")"
	}
	pct := fmt.Sprintf("%3.0f%%", m.viewports[m.activeTab].ScrollPercent()*100)
	pad := m.width - lipgloss.Width(hint) - len(pct) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(
		hint + strings.Repeat(" ", pad) + pct,
	)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewports() {
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		vp := viewport.New(m.width, vpHeight)
		vp.SetContent(m.renderTab(i))
		m.viewports[i] = vp
	}
}

// ── Tab renderers ─────────────────────────────────────────────────────────────

func (m *Model) renderTab(t tabID) string {
	switch t {
	case tabSummary:
		return m.renderSummary()
	case tabReadings:
		return m.renderReadings()
	case tabChart:
		return m.renderChart()
	case tabGaps:
		return m.renderGaps()
	}
	return ""
}

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func bullet(text string) string {
	return bulletStyle.Render("  •") + "  " + text + "\n"
}

func none() string {
	return dimStyle.Render("  (none)") + "\n"
}

func (m *Model) renderSummary() string {
	s := m.log.Summary()
	var sb strings.Builder
	sb.WriteString(heading("Session Summary"))

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-14s", label)) + "  " + value + "\n")
	}
	row("File:", m.log.Name)
	row("Metric:", m.log.Metric)
	row("Readings:", strconv.Itoa(s.Count))
	if s.Count > 0 {
		row("First:", s.First.Format(sessionlog.TimestampLayout))
		row("Last:", s.Last.Format(sessionlog.TimestampLayout))
		row("Duration:", s.Duration.String())
	}

	if s.Numeric && s.Count > 0 {
		sb.WriteString("\n")
		sb.WriteString(heading("Values"))
		row("Min:", fmt.Sprintf("%g", s.Min))
		row("Max:", fmt.Sprintf("%g", s.Max))
		row("Mean:", fmt.Sprintf("%.3f", s.Mean))
	}

	sb.WriteString("\n")
	sb.WriteString(heading("Gaps"))
	row("Count:", strconv.Itoa(len(m.log.Gaps(sessionlog.DefaultGapThreshold))))
	return sb.String()
}

func (m *Model) renderReadings() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("%s (%d)", m.log.Metric, len(m.log.Rows))))
	if len(m.log.Rows) == 0 {
		sb.WriteString(none())
		return sb.String()
	}
	for i := range m.log.Rows {
		row := m.log.Rows[i]
		if !m.sortAsc {
			row = m.log.Rows[len(m.log.Rows)-1-i]
		}
		ts := timeStyle.Render(row.Timestamp.Format(sessionlog.TimestampLayout))
		sb.WriteString(fmt.Sprintf("  %s  %s\n", ts, valueStyle.Render(row.Value)))
	}
	return sb.String()
}

// renderChart draws one horizontal bar per reading, scaled between the
// session minimum and maximum.
func (m *Model) renderChart() string {
	var sb strings.Builder
	sb.WriteString(heading("Chart"))
	s := m.log.Summary()
	if s.Count == 0 {
		sb.WriteString(none())
		return sb.String()
	}
	if !s.Numeric {
		sb.WriteString(dimStyle.Render("  readings are not numeric") + "\n")
		return sb.String()
	}

	width := m.width - 40
	if width < 10 {
		width = 10
	}
	span := s.Max - s.Min
	for _, row := range m.log.Rows {
		v, _ := strconv.ParseFloat(strings.TrimSpace(row.Value), 64)
		n := width
		if span > 0 {
			n = 1 + int((v-s.Min)/span*float64(width-1))
		}
		ts := timeStyle.Render(row.Timestamp.Format("15:04:05"))
		sb.WriteString(fmt.Sprintf("  %s  %-10s %s\n", ts, row.Value, barStyle.Render(strings.Repeat("█", n))))
	}
	return sb.String()
}

func (m *Model) renderGaps() string {
	var sb strings.Builder
	gaps := m.log.Gaps(sessionlog.DefaultGapThreshold)
	sb.WriteString(heading(fmt.Sprintf("Gaps longer than %s (%d)", sessionlog.DefaultGapThreshold, len(gaps))))
	if len(gaps) == 0 {
		sb.WriteString(none())
		return sb.String()
	}
	for _, g := range gaps {
		sb.WriteString(bullet(fmt.Sprintf("%s → %s  %s",
			timeStyle.Render(g.From.Format(sessionlog.TimestampLayout)),
			timeStyle.Render(g.To.Format("15:04:05")),
			gapStyle.Render(g.Length().String()),
		)))
	}
	return sb.String()
}

// Run launches the TUI for log and blocks until the user quits.
func Run(log *sessionlog.Log, filename string) error {
	p := tea.NewProgram(New(log, filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
