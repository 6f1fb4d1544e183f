// Package tui provides the Bubble Tea click-test interface.
package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/cpstest/internal/filter"
	"github.com/verte-zerg/cpstest/internal/history"
	"github.com/verte-zerg/cpstest/internal/model"
	"github.com/verte-zerg/cpstest/internal/session"
	"github.com/verte-zerg/cpstest/internal/stats"
	"github.com/verte-zerg/cpstest/internal/ticker"
	"github.com/verte-zerg/cpstest/internal/variant"
)

const recentRows = 5

// DefaultRepeatThreshold sits above common OS auto-repeat intervals (25-30 Hz,
// 33-40ms) and below the gap of a fast human tapping at 20 CPS.
const DefaultRepeatThreshold = 50 * time.Millisecond

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	cardStyle      = lipgloss.NewStyle().Padding(0, 2).Border(lipgloss.RoundedBorder(), true).BorderForeground(lipgloss.Color("#4A4A4A"))
	activeCard     = cardStyle.BorderForeground(lipgloss.Color("#C89A3A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	resultStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// Options tunes the test screen.
type Options struct {
	// RepeatThreshold marks identical key presses closer than this as auto-repeat.
	RepeatThreshold time.Duration
	TickInterval    time.Duration
	Logger          *slog.Logger
	Clock           func() time.Time
}

// Model implements the Bubble Tea click-test UI.
type Model struct {
	cfg    variant.Config
	engine *session.Engine
	ledger *history.Ledger
	now    func() time.Time

	repeatThreshold time.Duration
	lastKey         string
	lastKeyAt       time.Time

	keys keyMap
	help help.Model

	width  int
	height int

	accepted int
	rejected int
}

// NewModel constructs a test UI for cfg, recording into ledger.
func NewModel(cfg variant.Config, ledger *history.Ledger, opts Options) *Model {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	engineOpts := []session.Option{
		session.WithClock(now),
		session.WithLogger(opts.Logger),
		session.WithInterval(opts.TickInterval),
	}
	if ledger != nil {
		engineOpts = append(engineOpts, session.WithRecorder(history.Recorder{Ledger: ledger}))
	}
	return &Model{
		cfg:             cfg,
		engine:          session.New(cfg, engineOpts...),
		ledger:          ledger,
		now:             now,
		repeatThreshold: opts.RepeatThreshold,
		keys:            newKeyMap(cfg.Policy.Match == filter.MatchButton),
		help:            help.New(),
	}
}

// Engine exposes the session engine.
func (m *Model) Engine() *session.Engine {
	return m.engine
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
		return m, nil
	case ticker.Msg:
		return m, m.engine.Update(msg)
	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress {
			return m, nil
		}
		return m, m.press(model.MouseEvent(mouseButton(msg.Button), m.now()))
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeySpace {
		return m, m.press(m.keyEvent(model.KeySpace))
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.engine.Reset()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Reset):
		m.engine.Reset()
		m.lastKey = ""
	case key.Matches(msg, m.keys.Start):
		return m, m.engine.Start()
	case key.Matches(msg, m.keys.Left):
		m.engine.SelectButton(model.ButtonLeft)
	case key.Matches(msg, m.keys.Middle):
		m.engine.SelectButton(model.ButtonMiddle)
	case key.Matches(msg, m.keys.Right):
		m.engine.SelectButton(model.ButtonRight)
	}
	return m, nil
}

func (m *Model) keyEvent(name string) model.InputEvent {
	now := m.now()
	ev := model.KeyEvent(name, now)
	if m.repeatThreshold > 0 && m.lastKey == name && now.Sub(m.lastKeyAt) < m.repeatThreshold {
		ev.Repeat = true
	}
	m.lastKey = name
	m.lastKeyAt = now
	return ev
}

func (m *Model) press(ev model.InputEvent) tea.Cmd {
	ok, cmd := m.engine.Press(ev)
	if ok {
		m.accepted++
	} else {
		m.rejected++
	}
	return cmd
}

func mouseButton(b tea.MouseButton) model.Button {
	switch b {
	case tea.MouseButtonLeft:
		return model.ButtonLeft
	case tea.MouseButtonMiddle:
		return model.ButtonMiddle
	case tea.MouseButtonRight:
		return model.ButtonRight
	default:
		return model.ButtonNone
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	snap := m.engine.Snapshot()
	sections := []string{
		titleStyle.Render(m.renderTitle(snap)),
		m.renderCards(snap),
		m.renderStatus(snap),
	}
	if recent := m.renderRecent(); recent != "" {
		sections = append(sections, recent)
	}
	content := lipgloss.JoinVertical(lipgloss.Center, sections...)
	footer := m.help.View(m.keys)
	if m.width == 0 || m.height < 3 {
		return content + "\n\n" + footer
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	return body + "\n" + lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
}

func (m *Model) renderTitle(snap session.Snapshot) string {
	parts := []string{m.cfg.Title, fmt.Sprintf("%ds", m.cfg.Duration)}
	if m.cfg.Policy.Match == filter.MatchButton {
		parts = append(parts, snap.Button.String()+" button")
	}
	return strings.Join(parts, " · ")
}

func (m *Model) renderCards(snap session.Snapshot) string {
	style := cardStyle
	if snap.State == model.StateActive {
		style = activeCard
	}
	card := func(title, value string) string {
		return style.Render(cardTitleStyle.Render(title) + "\n" + cardValueStyle.Render(value))
	}
	cards := []string{
		card("Time", fmt.Sprintf("%.2f / %ds", snap.Elapsed, snap.Duration)),
		card("Clicks", fmt.Sprintf("%d", snap.Clicks)),
		card("CPS", fmt.Sprintf("%.2f", snap.LiveCPS)),
	}
	if m.cfg.MultiTarget > 0 {
		cards = append(cards, card(multiLabel(m.cfg.MultiTarget), fmt.Sprintf("%d", snap.Multi)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func (m *Model) renderStatus(snap session.Snapshot) string {
	switch snap.State {
	case model.StateIdle:
		if m.cfg.Policy.Match == filter.MatchKey {
			return statusStyle.Render("Press space to start")
		}
		return statusStyle.Render(fmt.Sprintf("Click with the %s button to start", snap.Button))
	case model.StateActive:
		return statusStyle.Render(fmt.Sprintf("Go! %.1fs left", snap.Remaining()))
	}
	res, ok := m.engine.Result()
	if !ok {
		return ""
	}
	line := fmt.Sprintf("%.2f CPS · %d clicks in %ds · %s", res.FinalCPS, res.Clicks, res.Duration, stats.Rate(res.Variant, res.FinalCPS))
	if m.cfg.MultiTarget > 0 {
		line += fmt.Sprintf(" · %d %s", res.Multi, strings.ToLower(multiLabel(m.cfg.MultiTarget)))
		if res.BestMs > 0 {
			line += fmt.Sprintf(" (best %dms)", res.BestMs)
		}
	}
	return resultStyle.Render(line) + "\n" + mutedStyle.Render("esc to try again")
}

func (m *Model) renderRecent() string {
	if m.ledger == nil {
		return ""
	}
	records := m.ledger.FilterByDuration(m.cfg.Duration)
	if len(records) == 0 {
		return mutedStyle.Render("No history yet")
	}
	if len(records) > recentRows {
		records = records[:recentRows]
	}
	lines := []string{cardTitleStyle.Render("History")}
	for _, r := range records {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("%6.2f CPS  %4d clicks  %s", r.CPS, r.Clicks, r.Date)))
	}
	return strings.Join(lines, "\n")
}

func multiLabel(target int) string {
	if target == 3 {
		return "Triple Clicks"
	}
	return "Double Clicks"
}
