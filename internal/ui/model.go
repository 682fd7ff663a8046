// Package ui is the terminal front-end of the focus timer. It renders the
// views published by the session runner and sends user actions back to it.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mosmello93/focus-timer/internal/domain"
	"github.com/mosmello93/focus-timer/internal/usecase"
)

const (
	commandTimeout  = 5 * time.Second
	toastDuration   = 3 * time.Second
	refreshInterval = 500 * time.Millisecond
	historyRows     = 15
	statsDays       = 7
)

// Controller runs engine actions on the runner goroutine.
type Controller interface {
	Do(ctx context.Context, fn func(e *usecase.Engine) error) error
}

type tab int

const (
	tabTimer tab = iota
	tabStats
	tabHistory
)

var tabNames = []string{"Timer", "Stats", "History"}

type promptKind int

const (
	promptNone promptKind = iota
	promptUnlock
	promptPassword
	promptBlacklist
	promptCategory
)

// toast is a front-end message, separate from the engine's notice
type toast struct {
	Message string
	IsError bool
	Expires time.Time
}

// Messages

type viewMsg usecase.View

type viewsClosedMsg struct{}

type refreshMsg time.Time

type actionDoneMsg struct {
	what string
	err  error
}

// Model is the bubbletea model of the timer.
type Model struct {
	ctrl  Controller
	views <-chan usecase.View
	now   func() time.Time

	view   usecase.View
	ready  bool
	tab    tab
	prompt promptKind
	input  textinput.Model
	styles *Styles
	toast  toast

	width  int
	height int
}

// NewModel creates the TUI model. views is usually a runner subscription.
func NewModel(ctrl Controller, views <-chan usecase.View) Model {
	ti := textinput.New()
	ti.CharLimit = 128
	ti.Width = 40

	return Model{
		ctrl:   ctrl,
		views:  views,
		now:    time.Now,
		input:  ti,
		styles: NewStyles(domain.ThemeDark),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForView(m.views), refreshEvery(refreshInterval))
}

func waitForView(views <-chan usecase.View) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-views
		if !ok {
			return viewsClosedMsg{}
		}
		return viewMsg(v)
	}
}

func refreshEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case viewMsg:
		m.view = usecase.View(msg)
		m.ready = true
		if m.view.ThemeMode != m.styles.Theme && m.view.ThemeMode.Valid() {
			m.styles = NewStyles(m.view.ThemeMode)
		}
		if m.view.Exhausted && m.prompt != promptNone {
			m.closePrompt()
		}
		return m, waitForView(m.views)

	case viewsClosedMsg:
		return m, tea.Quit

	case refreshMsg:
		return m, refreshEvery(refreshInterval)

	case actionDoneMsg:
		if msg.err != nil {
			m.setToast(errorText(msg.what, msg.err), true)
		}
		return m, nil

	case tea.KeyMsg:
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		return m.handleAction(keyAction(msg.String(), m.view.Mode, m.view.Exhausted, m.view.SettingsLocked, m.view.HasPassword))
	}

	return m, nil
}

func (m Model) handleAction(a action) (tea.Model, tea.Cmd) {
	v := m.view
	switch a {
	case actionQuit:
		return m, tea.Quit

	case actionStartWork:
		return m, m.do("start work", func(e *usecase.Engine) error { return e.StartWork("") })
	case actionStartGame:
		if !v.CanStartGame() {
			m.setToast("No game time left. Work to earn some.", true)
			return m, nil
		}
		return m, m.do("start game", func(e *usecase.Engine) error { return e.StartGame() })
	case actionStop:
		return m, m.do("stop", func(e *usecase.Engine) error { e.Stop(false); return nil })
	case actionStopAndKill:
		return m, m.do("stop", func(e *usecase.Engine) error { e.Stop(true); return nil })
	case actionAcknowledge:
		return m, m.do("acknowledge", func(e *usecase.Engine) error { e.Acknowledge(); return nil })
	case actionCycleCategory:
		return m, m.do("select category", func(e *usecase.Engine) error { e.CycleCategory(); return nil })

	case actionNextTab:
		m.tab = (m.tab + 1) % tab(len(tabNames))
	case actionTabTimer:
		m.tab = tabTimer
	case actionTabStats:
		m.tab = tabStats
	case actionTabHistory:
		m.tab = tabHistory

	case actionToggleSound:
		enabled := !v.SoundEnabled
		return m, m.do("toggle sound", func(e *usecase.Engine) error { return e.SetSoundEnabled(enabled) })
	case actionToggleTheme:
		next := domain.ThemeLight
		if v.ThemeMode == domain.ThemeLight {
			next = domain.ThemeDark
		}
		return m, m.do("switch theme", func(e *usecase.Engine) error { return e.SetThemeMode(next) })
	case actionResetBalance:
		return m, m.do("reset balance", func(e *usecase.Engine) error { return e.ResetBalanceToAllowance() })
	case actionLock:
		return m, m.do("lock settings", func(e *usecase.Engine) error { e.LockSettings(); return nil })

	case actionAddBlacklist, actionAddCategory, actionSetPassword:
		if v.SettingsLocked {
			m.setToast("Settings are locked. Press u to unlock.", true)
			return m, nil
		}
		kind := promptBlacklist
		switch a {
		case actionAddCategory:
			kind = promptCategory
		case actionSetPassword:
			kind = promptPassword
		}
		cmd := m.openPrompt(kind)
		return m, cmd
	case actionUnlock:
		cmd := m.openPrompt(promptUnlock)
		return m, cmd
	}
	return m, nil
}

func (m *Model) openPrompt(kind promptKind) tea.Cmd {
	m.prompt = kind
	m.input.Reset()
	m.input.EchoMode = textinput.EchoNormal
	switch kind {
	case promptBlacklist:
		m.input.Prompt = "Process name: "
		m.input.Placeholder = "game.exe"
	case promptCategory:
		m.input.Prompt = "New category: "
		m.input.Placeholder = "Reading"
	case promptUnlock:
		m.input.Prompt = "Password: "
		m.input.Placeholder = ""
		m.input.EchoMode = textinput.EchoPassword
		m.input.EchoCharacter = '•'
	case promptPassword:
		m.input.Prompt = "New password (empty removes): "
		m.input.Placeholder = ""
		m.input.EchoMode = textinput.EchoPassword
		m.input.EchoCharacter = '•'
	}
	return m.input.Focus()
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.input.Blur()
	m.input.Reset()
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closePrompt()
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter:
		value := m.input.Value()
		kind := m.prompt
		m.closePrompt()
		return m, m.submitPrompt(kind, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submitPrompt(kind promptKind, value string) tea.Cmd {
	switch kind {
	case promptBlacklist:
		return m.do("add process", func(e *usecase.Engine) error { return e.AddBlacklistProcess(value) })
	case promptCategory:
		return m.do("add category", func(e *usecase.Engine) error { return e.AddCategory(value) })
	case promptUnlock:
		return m.do("unlock", func(e *usecase.Engine) error { return e.UnlockSettings(value) })
	case promptPassword:
		return m.do("set password", func(e *usecase.Engine) error { return e.SetPassword(value) })
	}
	return nil
}

// do sends fn to the runner and reports its error back as a message.
func (m Model) do(what string, fn func(e *usecase.Engine) error) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		if ctrl == nil {
			return actionDoneMsg{what: what}
		}
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return actionDoneMsg{what: what, err: ctrl.Do(ctx, fn)}
	}
}

func (m *Model) setToast(msg string, isError bool) {
	m.toast = toast{Message: msg, IsError: isError, Expires: m.now().Add(toastDuration)}
}

func errorText(what string, err error) string {
	switch {
	case errors.Is(err, usecase.ErrWrongPassword):
		return "Wrong password."
	case errors.Is(err, usecase.ErrSettingsLocked):
		return "Settings are locked. Press u to unlock."
	case errors.Is(err, usecase.ErrInsufficientBalance):
		return "No game time left. Work to earn some."
	case errors.Is(err, usecase.ErrExhausted):
		return "Acknowledge the time's up screen first."
	default:
		return fmt.Sprintf("Could not %s: %v", what, err)
	}
}

// View implements tea.Model
func (m Model) View() string {
	if !m.ready {
		return m.styles.App.Render("Loading…")
	}
	s := m.styles
	v := m.view

	if v.Exhausted {
		return s.App.Render(m.renderExhausted())
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch m.tab {
	case tabStats:
		b.WriteString(m.renderStats())
	case tabHistory:
		b.WriteString(m.renderHistory())
	default:
		b.WriteString(m.renderTimer())
	}
	b.WriteString("\n")

	if m.prompt != promptNone {
		b.WriteString("\n")
		b.WriteString(s.Prompt.Render(m.input.View()))
		b.WriteString("\n")
		b.WriteString(s.Hint.Render("enter: confirm • esc: cancel"))
		b.WriteString("\n")
	}

	if line := m.renderMessages(); line != "" {
		b.WriteString("\n")
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return s.App.Render(b.String())
}

func (m Model) renderHeader() string {
	s := m.styles
	var tabs []string
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if tab(i) == m.tab {
			tabs = append(tabs, s.TabActive.Render(label))
		} else {
			tabs = append(tabs, s.TabInactive.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Center,
		s.Title.Render("focustimer"), "  ",
		s.ModeBadge(m.view.Mode).Render(m.view.Mode.String()), "  ",
		m.renderConnectivity(), "    ",
		strings.Join(tabs, " "),
	)
}

func (m Model) renderConnectivity() string {
	s := m.styles
	switch {
	case !m.view.ConnectivityKnown:
		return s.ConnUnknown.Render("○ connecting")
	case m.view.Connected:
		return s.ConnUp.Render("● watching " + strings.Join(m.view.Blacklist, ", "))
	default:
		return s.ConnDown.Render("● process list unavailable, auto mode off")
	}
}

func (m Model) renderTimer() string {
	s := m.styles
	v := m.view

	row := func(label, value string) string {
		return s.Label.Render(label) + s.Value.Render(value)
	}

	lines := []string{
		s.Clock.Render(FormatClock(v.Balance)),
		"",
		row("Session", FormatClock(float64(v.SessionSeconds))),
		row("Category", v.Category),
		row("Ratio", fmt.Sprintf("%.2f game s / work s", v.Ratio)),
		row("Daily bonus", fmt.Sprintf("%d min", v.DailyAllowance)),
		row("Start", v.StartTarget),
	}
	flags := []string{}
	if v.SoundEnabled {
		flags = append(flags, "sound on")
	} else {
		flags = append(flags, "sound off")
	}
	if v.HasPassword {
		if v.SettingsLocked {
			flags = append(flags, "settings locked")
		} else {
			flags = append(flags, "settings unlocked")
		}
	}
	lines = append(lines, row("Options", strings.Join(flags, " • ")))
	return strings.Join(lines, "\n")
}

func (m Model) renderStats() string {
	s := m.styles
	st := m.view.Stats

	row := func(label, value string) string {
		return s.Label.Render(label) + s.Value.Render(value)
	}

	lines := []string{
		row("Worked", fmt.Sprintf("%s in %d sessions", FormatDuration(st.WorkSeconds), st.WorkSessions)),
		row("Played", fmt.Sprintf("%s in %d sessions", FormatDuration(st.GameSeconds), st.GameSessions)),
		row("Earned", FormatDuration(int(st.EarnedSeconds))),
	}
	if len(st.Days) > 0 {
		lines = append(lines, "", s.Hint.Render("Last days"))
		for i, d := range st.Days {
			if i == statsDays {
				break
			}
			lines = append(lines, fmt.Sprintf("%s  work %-8s game %-8s", d.Date, FormatDuration(d.WorkSeconds), FormatDuration(d.GameSeconds)))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHistory() string {
	s := m.styles
	if len(m.view.History) == 0 {
		return s.Hint.Render("No sessions yet.")
	}
	var lines []string
	for i, sess := range m.view.History {
		if i == historyRows {
			lines = append(lines, s.Hint.Render(fmt.Sprintf("… %d more, see `focustimer history`", len(m.view.History)-historyRows)))
			break
		}
		lines = append(lines, fmt.Sprintf("%s  %-24s %8s %s",
			sess.StartedAt.Local().Format("01-02 15:04"),
			SessionLabel(sess),
			FormatDuration(sess.DurationSeconds),
			FormatEarned(sess)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderMessages() string {
	s := m.styles
	now := m.now()
	var parts []string
	if m.view.Notice != "" && now.Before(m.view.NoticeExpires) {
		parts = append(parts, s.Notice.Render(m.view.Notice))
	}
	if m.toast.Message != "" && now.Before(m.toast.Expires) {
		style := s.Notice
		if m.toast.IsError {
			style = s.Error
		}
		parts = append(parts, style.Render(m.toast.Message))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderExhausted() string {
	s := m.styles
	body := lipgloss.JoinVertical(lipgloss.Center,
		"TIME'S UP",
		"",
		s.OverlayText.Render("Your game time is used up. Blacklisted processes were closed."),
		s.OverlayText.Render("Press enter to acknowledge."),
	)
	box := s.Overlay.Render(body)
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width-4, m.height-2, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}

func (m Model) renderHelp() string {
	s := m.styles
	key := func(k, desc string) string {
		return s.HintKey.Render(k) + " " + s.Hint.Render(desc)
	}

	var items []string
	switch m.view.Mode {
	case domain.ModeIdle:
		items = append(items, key("w", "work"), key("c", "category"))
		if m.view.CanStartGame() {
			items = append(items, key("g", "game"))
		}
	case domain.ModeWorking:
		items = append(items, key("s", "stop"))
	case domain.ModeGaming:
		items = append(items, key("s", "stop"), key("k", "stop & close game"))
	}
	items = append(items,
		key("b", "blacklist"), key("n", "new category"), key("m", "sound"),
		key("t", "theme"), key("r", "reset balance"), key("p", "password"))
	if m.view.SettingsLocked {
		items = append(items, key("u", "unlock"))
	} else if m.view.HasPassword {
		items = append(items, key("u", "lock"))
	}
	items = append(items, key("q", "quit"))
	return strings.Join(items, " • ")
}
