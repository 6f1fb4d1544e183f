// Package historyui provides a Bubble Tea browser for stored test results.
package historyui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/cpstest/internal/history"
	"github.com/verte-zerg/cpstest/internal/model"
	"github.com/verte-zerg/cpstest/internal/stats"
	"github.com/verte-zerg/cpstest/internal/variant"
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

type keyMap struct {
	Next    key.Binding
	Prev    key.Binding
	Filter  key.Binding
	Clear   key.Binding
	Confirm key.Binding
	Cancel  key.Binding
	Quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Next:    key.NewBinding(key.WithKeys("tab", "l", "right"), key.WithHelp("tab", "next test")),
		Prev:    key.NewBinding(key.WithKeys("shift+tab", "h", "left"), key.WithHelp("shift+tab", "prev test")),
		Filter:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "cycle time")),
		Clear:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		Confirm: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
		Cancel:  key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "cancel")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Filter, k.Clear, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Next, k.Prev}, {k.Filter, k.Clear}, {k.Quit}}
}

// Options configures the browser.
type Options struct {
	// Variants lists the tabs; defaults to every variant.
	Variants []model.Variant
	// Initial selects the first tab shown.
	Initial model.Variant
	// Duration filters records to one test length; 0 shows all.
	Duration int
	Clock    func() time.Time
}

// Model browses ledgers held by a history registry.
type Model struct {
	registry *history.Registry
	variants []model.Variant
	active   int
	duration int
	now      func() time.Time

	table      table.Model
	records    []model.HistoryRecord
	confirming bool

	keys keyMap
	help help.Model

	width  int
	height int
}

// NewModel builds a browser over registry.
func NewModel(registry *history.Registry, opts Options) *Model {
	variants := opts.Variants
	if len(variants) == 0 {
		variants = variant.All()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	m := &Model{
		registry: registry,
		variants: variants,
		duration: opts.Duration,
		now:      now,
		keys:     newKeyMap(),
		help:     help.New(),
	}
	for i, v := range variants {
		if v == opts.Initial {
			m.active = i
		}
	}
	m.table = table.New(
		table.WithColumns(columns()),
		table.WithFocused(true),
		table.WithHeight(history.MaxRecords),
	)
	m.table.SetStyles(tableStyles())
	m.reload()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(max(3, min(history.MaxRecords+1, msg.Height-8)))
		return m, nil
	case tea.KeyMsg:
		if m.confirming {
			return m.handleConfirm(msg)
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			m.active = (m.active + 1) % len(m.variants)
			m.reload()
			return m, nil
		case key.Matches(msg, m.keys.Prev):
			m.active = (m.active - 1 + len(m.variants)) % len(m.variants)
			m.reload()
			return m, nil
		case key.Matches(msg, m.keys.Filter):
			m.duration = nextDuration(m.duration)
			m.reload()
			return m, nil
		case key.Matches(msg, m.keys.Clear):
			if m.ledger().Len() > 0 {
				m.confirming = true
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.ledger().Clear()
		m.confirming = false
		m.reload()
	case key.Matches(msg, m.keys.Cancel):
		m.confirming = false
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

// Variant returns the variant of the active tab.
func (m *Model) Variant() model.Variant {
	return m.variants[m.active]
}

// Duration returns the active duration filter; 0 means all.
func (m *Model) Duration() int {
	return m.duration
}

// Records returns the rows currently shown.
func (m *Model) Records() []model.HistoryRecord {
	return m.records
}

func (m *Model) ledger() *history.Ledger {
	return m.registry.Ledger(variant.TestType(m.Variant()))
}

func (m *Model) reload() {
	l := m.ledger()
	if m.duration > 0 {
		m.records = l.FilterByDuration(m.duration)
	} else {
		m.records = l.Records()
	}
	m.table.SetRows(buildRows(m.records, m.now()))
	m.table.GotoTop()
}

// nextDuration walks all -> 1s -> 2s -> ... -> 60s -> all.
func nextDuration(current int) int {
	durations := variant.AllowedDurations()
	for i, d := range durations {
		if d == current && i+1 < len(durations) {
			return durations[i+1]
		}
	}
	if current == 0 {
		return durations[0]
	}
	return 0
}

func columns() []table.Column {
	return []table.Column{
		{Title: "Time", Width: 5},
		{Title: "Clicks", Width: 7},
		{Title: "CPS", Width: 7},
		{Title: "Multi", Width: 6},
		{Title: "Date", Width: 19},
		{Title: "Age", Width: 16},
	}
}

func buildRows(records []model.HistoryRecord, now time.Time) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for _, r := range records {
		multi := "-"
		if r.Multi > 0 {
			multi = fmt.Sprintf("%d", r.Multi)
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%ds", r.TestTime),
			fmt.Sprintf("%d", r.Clicks),
			fmt.Sprintf("%.2f", r.CPS),
			multi,
			r.Date,
			humanize.RelTime(r.RecordedAt(), now, "ago", "from now"),
		})
	}
	return rows
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		PaddingLeft(0)
	styles.Cell = styles.Cell.PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

// View implements tea.Model.
func (m *Model) View() string {
	sections := []string{m.renderTabs(), m.renderFilter(), m.renderSummary()}
	if len(m.records) == 0 {
		sections = append(sections, mutedStyle.Render("No history yet."))
	} else {
		sections = append(sections, m.table.View())
	}
	if m.confirming {
		sections = append(sections, warningStyle.Render(
			fmt.Sprintf("Clear all %s history? (y/n)", strings.ToLower(titleOf(m.Variant())))))
	} else {
		sections = append(sections, m.help.View(m.keys))
	}
	return strings.Join(sections, "\n")
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.variants))
	for i, v := range m.variants {
		label := titleOf(v)
		if i == m.active {
			parts = append(parts, activeNavStyle.Render(label))
		} else {
			parts = append(parts, inactiveNavStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderFilter() string {
	label := "all"
	if m.duration > 0 {
		label = fmt.Sprintf("%ds", m.duration)
	}
	return headerStyle.Render(fmt.Sprintf("Time: %s · %d of %d records", label, len(m.records), history.MaxRecords))
}

func (m *Model) renderSummary() string {
	if len(m.records) == 0 {
		return ""
	}
	s := stats.Summarize(m.records)
	line := fmt.Sprintf("Avg %.2f CPS · Best %.2f CPS · %s clicks · %s",
		s.AvgCPS, s.BestCPS, humanize.Comma(int64(s.Clicks)), stats.Rate(m.Variant(), s.BestCPS))
	if s.BestMulti > 0 {
		line += fmt.Sprintf(" · best multi %d", s.BestMulti)
	}
	return line
}

func titleOf(v model.Variant) string {
	cfg, err := variant.Resolve(v, 0, variant.DefaultOptions())
	if err != nil {
		return string(v)
	}
	return cfg.Title
}
