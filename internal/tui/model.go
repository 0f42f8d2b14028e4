// Package tui provides the Bubble Tea typing test interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/speedtype/internal/clock"
	"github.com/verte-zerg/speedtype/internal/logging"
	"github.com/verte-zerg/speedtype/internal/model"
	"github.com/verte-zerg/speedtype/internal/passage"
	"github.com/verte-zerg/speedtype/internal/session"
	"github.com/verte-zerg/speedtype/internal/stats"
)

// PassageSource looks up passages by difficulty.
type PassageSource interface {
	Get(difficulty string) (string, error)
	Difficulties() ([]string, error)
}

// HistoryStore records and lists finished sessions.
type HistoryStore interface {
	session.Recorder
	stats.SessionLister
}

// Model implements the Bubble Tea typing UI and receives session notifications.
type Model struct {
	config  model.Config
	scores  session.ScoreKeeper
	history HistoryStore
	log     *slog.Logger

	passages     PassageSource
	difficulties []string
	selected     int

	session *session.Session
	clock   *clock.Clock
	input   textinput.Model

	width  int
	height int

	liveWPM   float64
	remaining int
	best      float64
	newBest   bool
	result    string
	errKind   session.ErrorKind
	errMsg    string

	summary  stats.Summary
	last     model.SessionRecord
	hasLast  bool
	quitting bool
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = pendingStyle.Underline(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	headerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	selectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	resultStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#73D13D")).Bold(true)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

var timeNow = time.Now

const missingPassagesHint = "Create one with: speedtype passages init"

// NewModel constructs a typing TUI model. scores and history may be nil.
func NewModel(cfg model.Config, passages PassageSource, scores session.ScoreKeeper, history HistoryStore, logger *slog.Logger) *Model {
	m := &Model{
		config:   cfg,
		passages: passages,
		scores:   scores,
		history:  history,
		log:      logging.OrDiscard(logger),
		selected: -1,
		clock:    clock.New(cfg.FastTick, cfg.SlowTick),
	}
	m.session = session.New(session.Options{
		Duration: cfg.Duration,
		Mode:     cfg.WordCount,
		Now:      func() time.Time { return timeNow() },
		Scores:   scores,
		History:  history,
		View:     m,
		Logger:   m.log,
	})
	m.remaining = int(m.session.Duration().Seconds())
	if scores != nil {
		m.best = scores.Best()
	}

	m.input = textinput.New()
	m.input.Prompt = "> "
	m.input.CharLimit = 0
	m.input.Placeholder = "press enter to start"
	m.input.Blur()

	m.loadDifficulties(cfg.Difficulty)
	m.loadFooterStats()
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
		m.input.Width = max(1, m.contentWidth()-len(m.input.Prompt)-1)
		return m, nil
	case clock.TickMsg:
		return m, m.handleTick(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.clock.Stop()
		m.quitting = true
		return m, tea.Quit
	case tea.KeyCtrlR:
		m.resetSession()
		return m, nil
	}

	if m.session.State() == session.Running {
		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if value := m.input.Value(); value != before {
			m.session.OnInput(value)
		}
		return m, cmd
	}

	switch msg.Type {
	case tea.KeyEnter:
		return m, m.startTest()
	case tea.KeyTab, tea.KeyRight:
		m.selectDifficulty(1)
	case tea.KeyShiftTab, tea.KeyLeft:
		m.selectDifficulty(-1)
	}
	return m, nil
}

func (m *Model) handleTick(msg clock.TickMsg) tea.Cmd {
	if !m.clock.Accept(msg) {
		return nil
	}
	switch msg.Kind {
	case clock.Slow:
		m.session.RefreshScore()
		return m.clock.Next(clock.Slow)
	default:
		m.session.Tick()
		if m.session.State() != session.Running {
			m.clock.Stop()
			m.input.Blur()
			m.input.Placeholder = "press enter to try again"
			m.loadFooterStats()
			return nil
		}
		return m.clock.Next(clock.Fast)
	}
}

func (m *Model) startTest() tea.Cmd {
	difficulty := m.selectedDifficulty()
	if difficulty == "" {
		m.ShowError(session.ErrorNoDifficulty, "Please select a difficulty.")
		return nil
	}
	if !m.loadPassage(difficulty) {
		return nil
	}
	if err := m.session.Start(); err != nil {
		m.ShowError(session.ErrorNotFound, err.Error())
		return nil
	}
	m.clearStatus()
	m.input.Reset()
	m.input.Placeholder = ""
	return tea.Batch(m.input.Focus(), m.clock.Start())
}

func (m *Model) resetSession() {
	m.clock.Stop()
	m.session.Reset()
	m.liveWPM = 0
	m.clearStatus()
	m.input.Reset()
	m.input.Blur()
	m.input.Placeholder = "press enter to start"
}

func (m *Model) clearStatus() {
	m.result = ""
	m.errKind = 0
	m.errMsg = ""
	m.newBest = false
}

func (m *Model) loadDifficulties(preferred string) {
	names, err := m.passages.Difficulties()
	if err != nil {
		m.difficulties = nil
		m.selected = -1
		m.showPassageError(err)
		return
	}
	m.difficulties = names
	m.selected = -1
	for i, name := range names {
		if name == preferred {
			m.selected = i
		}
	}
	if m.selected < 0 && len(names) > 0 {
		m.selected = 0
	}
	if d := m.selectedDifficulty(); d != "" {
		m.loadPassage(d)
	}
}

func (m *Model) selectDifficulty(delta int) {
	current := m.selectedDifficulty()
	m.loadDifficulties(current)
	if len(m.difficulties) == 0 {
		return
	}
	m.selected = (m.selected + delta + len(m.difficulties)) % len(m.difficulties)
	m.clearStatus()
	m.loadPassage(m.difficulties[m.selected])
}

func (m *Model) selectedDifficulty() string {
	if m.selected < 0 || m.selected >= len(m.difficulties) {
		return ""
	}
	return m.difficulties[m.selected]
}

func (m *Model) loadPassage(difficulty string) bool {
	text, err := m.passages.Get(difficulty)
	if err != nil {
		if !errors.Is(err, passage.ErrNotFound) {
			m.log.Error("failed to load passage", "difficulty", difficulty, "err", err)
		}
		m.showPassageError(err)
		return false
	}
	if err := m.session.SetPassage(difficulty, text); err != nil {
		m.log.Debug("passage change ignored", "difficulty", difficulty, "err", err)
		return false
	}
	return true
}

func (m *Model) showPassageError(err error) {
	msg := err.Error()
	if errors.Is(err, fs.ErrNotExist) {
		msg += ". " + missingPassagesHint
	}
	m.ShowError(session.ErrorNotFound, msg)
}

func (m *Model) loadFooterStats() {
	if m.history == nil {
		return
	}
	sessions, err := m.history.ListSessions(context.Background(), model.HistoryConfig{})
	if err != nil {
		m.log.Warn("failed to load session history", "err", err)
		return
	}
	m.summary = stats.Summarize(sessions)
	if len(sessions) > 0 {
		m.last = sessions[len(sessions)-1]
		m.hasLast = true
	}
}

// ShowScore implements session.View.
func (m *Model) ShowScore(wpm float64) {
	m.liveWPM = wpm
}

// ShowTimer implements session.View.
func (m *Model) ShowTimer(seconds int) {
	m.remaining = seconds
}

// ShowResult implements session.View.
func (m *Model) ShowResult(wpm float64, errCount int) {
	m.liveWPM = wpm
	m.result = fmt.Sprintf("Finished! Your typing speed is %.2f words per minute with %d errors.", wpm, errCount)
}

// ShowBest implements session.View.
func (m *Model) ShowBest(wpm float64) {
	m.best = wpm
	m.newBest = true
}

// ShowError implements session.View.
func (m *Model) ShowError(kind session.ErrorKind, msg string) {
	m.errKind = kind
	m.errMsg = msg
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	sections := []string{
		m.renderHeader(),
		m.renderDifficulties(),
		"",
		m.renderPassage(),
		"",
		m.input.View(),
	}
	if status := m.renderStatus(); status != "" {
		sections = append(sections, "", status)
	}
	content := strings.Join(sections, "\n")
	if m.width == 0 || m.height == 0 {
		return content + "\n" + m.renderFooter()
	}
	content = lipgloss.NewStyle().Width(m.contentWidth()).Render(content)
	footer := m.renderFooter()
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) contentWidth() int {
	return max(1, int(float64(m.width)*0.70))
}

func (m *Model) renderHeader() string {
	segments := []string{
		fmt.Sprintf("Highest Record %.2f WPM", m.best),
		fmt.Sprintf("Current %.2f WPM", m.liveWPM),
		fmt.Sprintf("Timer: %d seconds", m.remaining),
	}
	return headerStyle.Render(strings.Join(segments, "  ·  "))
}

func (m *Model) renderDifficulties() string {
	if len(m.difficulties) == 0 {
		return footerStyle.Render("no passages loaded")
	}
	parts := make([]string, len(m.difficulties))
	for i, name := range m.difficulties {
		if i == m.selected {
			parts[i] = selectedStyle.Render("[" + name + "]")
		} else {
			parts[i] = footerStyle.Render(" " + name + " ")
		}
	}
	return strings.Join(parts, " ")
}

func (m *Model) renderPassage() string {
	target := []rune(m.session.Passage())
	if len(target) == 0 {
		return ""
	}
	input := []rune(m.input.Value())
	matched := matchedPrefix(target, input)
	cursorIndex := -1
	if m.session.State() == session.Running && matched < len(target) {
		cursorIndex = matched
	}
	styled := buildStyledRunes(target, matched, cursorIndex)
	if m.width == 0 {
		return renderStyledRunes(styled)
	}
	return wrapStyledRunes(styled, m.contentWidth())
}

func (m *Model) renderStatus() string {
	var lines []string
	if m.result != "" {
		lines = append(lines, resultStyle.Render(m.result))
	}
	if m.newBest {
		lines = append(lines, resultStyle.Render(fmt.Sprintf("New highest record: %.2f WPM", m.best)))
	}
	if m.errMsg != "" {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("Error (%s): %s", m.errKind, m.errMsg)))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderFooter() string {
	var segments []string
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %.2f WPM · %d errors", m.last.WPM, m.last.ErrorCount))
	}
	if m.summary.Sessions > 0 {
		segments = append(segments, fmt.Sprintf("Sessions %d · Avg %.2f WPM", m.summary.Sessions, m.summary.AvgWPM))
	}
	if m.session.State() == session.Running {
		segments = append(segments, "ctrl+r reset  esc quit")
	} else {
		segments = append(segments, "tab difficulty  enter start  esc quit")
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}
