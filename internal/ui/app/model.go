package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dansprotocol/internal/modules/protocol/domain"
	"dansprotocol/internal/modules/protocol/dto"
	"dansprotocol/internal/platform/config"
	"dansprotocol/internal/platform/sqlitedb"
	"dansprotocol/internal/ui/components"
	"dansprotocol/internal/ui/theme"
	historyview "dansprotocol/internal/ui/views/history"
	phaseview "dansprotocol/internal/ui/views/phase"
)

// ─── ports ───────────────────────────────────────────────────────────────────

type protocolPort interface {
	phaseview.Port
	historyview.Port
	Status(ctx context.Context) dto.Snapshot
	Onboard(ctx context.Context, date, wake, lang string, today time.Time) (dto.OnboardingOutput, error)
	Advance(ctx context.Context) (dto.AdvanceOutput, error)
	Skip(ctx context.Context, questionID string) dto.SkipOutput
	Dismiss()
	Deliver(ctx context.Context, tap bool) ([]dto.NotificationView, error)
	NewRun(ctx context.Context) error
	Export(ctx context.Context, sessionID string) (string, error)
}

type drainer interface {
	Drain() int
}

// tickInterval is how often due notifications are delivered while the app runs.
const tickInterval = time.Second

// phases maps a state to the question list shown for it.
var phases = map[domain.State]struct {
	title string
	part  int
	typ   string
}{
	domain.StatePart1:           {"Part 1 · Morning", 1, "main"},
	domain.StatePart2Waiting:    {"Part 2 · Contemplation", 2, "contemplation"},
	domain.StatePart3Synthesis:  {"Part 3 · Synthesis", 3, "synthesis"},
	domain.StatePart3Components: {"Part 3 · Life Game", 3, "components"},
}

// paletteCommands must stay in sync with executePalette.
var paletteCommands = []components.PaletteCommand{
	{Name: "next", Help: "finish the current phase"},
	{Name: "deliver", Help: "fire notifications that are due"},
	{Name: "dismiss", Help: "hide the interrupt"},
	{Name: "skip", Help: "snooze the interrupt"},
	{Name: "history", Help: "completed runs"},
	{Name: "export", Help: "write this session as a note"},
	{Name: "new-run", Help: "start over from history"},
	{Name: "refresh", Help: "reload state"},
}

// ─── async messages ───────────────────────────────────────────────────────────

type tickMsg time.Time

type snapshotMsg struct {
	snap      dto.Snapshot
	delivered int
	err       error
}

type actionMsg struct {
	status string
	err    error
}

type interruptLoadedMsg struct {
	texts map[string]string
}

// ─── key bindings ─────────────────────────────────────────────────────────────

type keyMap struct {
	Next    key.Binding
	Help    key.Binding
	Palette key.Binding
	Quit    key.Binding
	Answer  key.Binding
	Skip    key.Binding
	Dismiss key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Next:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next phase")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Palette: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "command")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
		Answer:  key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save answer")),
		Skip:    key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "snooze interrupt")),
		Dismiss: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss interrupt")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Help, k.Palette, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Palette},
		{k.Answer, k.Skip, k.Dismiss},
		{k.Help, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root Bubble Tea model. It follows the controller's state,
// delivers due notifications on a tick and presents the active interrupt
// above whatever phase is showing.
type Model struct {
	protocol protocolPort
	queue    drainer
	settings config.Settings
	mode     sqlitedb.Mode

	phaseView   phaseview.Model
	historyView historyview.Model

	snap       dto.Snapshot
	state      domain.State
	interrupts map[string]string
	answer     textarea.Model
	wake       textinput.Model
	lang       textinput.Model
	focusLang  bool

	keys     keyMap
	help     help.Model
	showHelp bool
	palette  components.Palette
	status   string
	width    int
	height   int
}

func NewModel(protocol protocolPort, queue drainer, settings config.Settings, mode sqlitedb.Mode) Model {
	answer := textarea.New()
	answer.Placeholder = "Answer honestly…"
	answer.ShowLineNumbers = false
	answer.SetHeight(4)

	wake := textinput.New()
	wake.Placeholder = "07:00"
	wake.SetValue(settings.WakeTime)
	wake.CharLimit = 5
	wake.Focus()

	lang := textinput.New()
	lang.Placeholder = "en | ko"
	lang.SetValue(settings.Language)
	lang.CharLimit = 2

	status := "ready"
	if mode != sqlitedb.ModePersistent {
		status = fmt.Sprintf("storage %s: answers may not persist", mode)
	}
	return Model{
		protocol:    protocol,
		queue:       queue,
		settings:    settings,
		mode:        mode,
		phaseView:   phaseview.New(protocol),
		historyView: historyview.New(protocol),
		interrupts:  map[string]string{},
		answer:      answer,
		wake:        wake,
		lang:        lang,
		keys:        defaultKeys(),
		help:        help.New(),
		palette:     components.NewPalette(paletteCommands),
		status:      status,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refreshCmd(false), m.loadInterruptsCmd(), tick(), textinput.Blink)
}

// ─── update ───────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, isKey := msg.(tea.KeyMsg); isKey && m.palette.Visible() {
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.palette.SetWidth(min(m.width-4, 60))
		m.help.Width = m.width
		m.answer.SetWidth(max(min(m.width-12, 72), 20))
		sz := tea.WindowSizeMsg{Width: m.width, Height: m.height - 3}
		m.phaseView, _ = m.phaseView.Update(sz)
		m.historyView, _ = m.historyView.Update(sz)
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refreshCmd(true), tick())

	case snapshotMsg:
		return m.applySnapshot(msg)

	case interruptLoadedMsg:
		m.interrupts = msg.texts
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		} else if msg.status != "" {
			m.status = msg.status
		}
		return m, m.refreshCmd(false)

	case components.PaletteSubmitMsg:
		return m.executePalette(msg.Input)

	case components.PaletteCancelMsg:
		m.status = "ready"
		return m, nil

	case phaseview.SavedMsg:
		if msg.Err != nil {
			m.status = "answer kept as draft: " + msg.Err.Error()
		} else {
			m.status = "saved"
		}
		var cmd tea.Cmd
		m.phaseView, cmd = m.phaseView.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.snap.Showing {
			return m.updateInterrupt(msg)
		}
		if m.state == domain.StateOnboarding {
			return m.updateOnboarding(msg)
		}
		if m.phaseView.Editing() {
			break
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "?":
			m.showHelp = true
			return m, nil
		case ":":
			return m, m.palette.Open()
		case "n":
			return m, m.advanceCmd()
		}
	}

	// Keys go to the visible view only; load results go to both.
	inHistory := m.state == domain.StateHistory || m.state == domain.StateCompleted
	_, isKey := msg.(tea.KeyMsg)
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if !isKey || !inHistory {
		m.phaseView, cmd = m.phaseView.Update(msg)
		cmds = append(cmds, cmd)
	}
	if !isKey || inHistory {
		m.historyView, cmd = m.historyView.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) applySnapshot(msg snapshotMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.status = "deliver: " + msg.err.Error()
	}
	if msg.delivered > 0 {
		m.status = fmt.Sprintf("%d notification(s) delivered", msg.delivered)
	}
	wasShowing, previous := m.snap.Showing, m.snap.ActiveInterrupt
	m.snap = msg.snap

	var cmds []tea.Cmd
	if m.snap.Showing && (!wasShowing || previous != m.snap.ActiveInterrupt) {
		m.answer.SetValue(m.snap.Drafts[m.snap.ActiveInterrupt])
		cmds = append(cmds, m.answer.Focus())
	}
	if m.snap.State != m.state {
		m.state = m.snap.State
		if p, ok := phases[m.state]; ok {
			cmds = append(cmds, m.phaseView.SetPhase(p.title, p.part, p.typ))
		}
		if m.state == domain.StateHistory || m.state == domain.StateCompleted {
			cmds = append(cmds, m.historyView.Load())
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) updateInterrupt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	active := m.snap.ActiveInterrupt
	switch msg.String() {
	case "ctrl+s":
		response := m.answer.Value()
		return m, m.actionCmd(func(ctx context.Context) (string, error) {
			if _, err := m.protocol.Answer(ctx, active, response); err != nil {
				return "", fmt.Errorf("answer kept as draft: %w", err)
			}
			return "interrupt answered", nil
		})
	case "ctrl+n":
		m.answer.Blur()
		return m, m.actionCmd(func(ctx context.Context) (string, error) {
			out := m.protocol.Skip(ctx, active)
			if out.Rescheduled {
				return fmt.Sprintf("snoozed until %s", out.FireAt.Format("15:04")), nil
			}
			return "snooze limit reached; answer it from the app", nil
		})
	case "esc":
		m.answer.Blur()
		return m, m.actionCmd(func(context.Context) (string, error) {
			m.protocol.Dismiss()
			return "dismissed", nil
		})
	}
	var cmd tea.Cmd
	m.answer, cmd = m.answer.Update(msg)
	return m, cmd
}

func (m Model) updateOnboarding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab", "shift+tab":
		m.focusLang = !m.focusLang
		if m.focusLang {
			m.wake.Blur()
			return m, m.lang.Focus()
		}
		m.lang.Blur()
		return m, m.wake.Focus()
	case "enter":
		wake, lang := m.wake.Value(), m.lang.Value()
		return m, m.actionCmd(func(ctx context.Context) (string, error) {
			out, err := m.protocol.Onboard(ctx, "", wake, lang, time.Now())
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("run started, %d notification(s) scheduled (%s)", len(out.Scheduled), out.Permission), nil
		})
	}
	var cmd tea.Cmd
	if m.focusLang {
		m.lang, cmd = m.lang.Update(msg)
	} else {
		m.wake, cmd = m.wake.Update(msg)
	}
	return m, cmd
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	header := m.renderHeader()
	statusBar := m.renderStatusBar()
	contentH := max(m.height-lipgloss.Height(header)-lipgloss.Height(statusBar), 1)

	var content string
	switch {
	case m.showHelp:
		content = m.help.View(m.keys)
	case m.palette.Visible():
		content = lipgloss.Place(m.width, contentH, lipgloss.Center, lipgloss.Center, m.palette.View())
	case m.snap.Showing:
		content = lipgloss.Place(m.width, contentH, lipgloss.Center, lipgloss.Center, m.renderInterrupt())
	case m.state == domain.StateOnboarding:
		content = m.renderOnboarding()
	case m.state == domain.StateLoading:
		content = theme.Muted.Render("loading…")
	case m.state == domain.StateHistory || m.state == domain.StateCompleted:
		content = m.historyView.View()
	default:
		content = m.phaseView.View()
	}
	content = lipgloss.NewStyle().Width(m.width).Height(contentH).Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

func (m Model) renderHeader() string {
	title := "Dan's Protocol  " + theme.Hot.Render(string(m.state))
	if s := m.snap.Session; s != nil {
		title += theme.Muted.Render(fmt.Sprintf("  %s · woke %s", s.StartDate.Format("2006-01-02"), s.WakeUpTime.Format("15:04")))
	}
	if m.state == domain.StatePart2Waiting {
		title += theme.Muted.Render(fmt.Sprintf("  · %d pending", len(m.snap.Pending)))
	}
	return lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(title) + "\n"
}

func (m Model) renderStatusBar() string {
	left := m.status
	right := theme.Muted.Render("?:help  n:next  :::command  q:quit")
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return "\n" + lipgloss.NewStyle().Background(theme.Mantle).Width(m.width).Render(left+strings.Repeat(" ", gap)+right)
}

func (m Model) renderInterrupt() string {
	text := m.interrupts[m.snap.ActiveInterrupt]
	if text == "" {
		text = m.snap.ActiveInterrupt
	}
	var sb strings.Builder
	sb.WriteString(theme.Hot.Render("Interrupt") + "\n\n")
	sb.WriteString(lipgloss.NewStyle().Width(max(min(m.width-12, 72), 20)).Render(text) + "\n\n")
	sb.WriteString(m.answer.View() + "\n\n")
	sb.WriteString(theme.Muted.Render("ctrl+s answer  ctrl+n snooze  esc hide"))
	return theme.Interrupt.Render(sb.String())
}

func (m Model) renderOnboarding() string {
	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Start a new run") + "\n\n")
	sb.WriteString("Wake-up time  " + m.wake.View() + "\n")
	sb.WriteString("Language      " + m.lang.View() + "\n\n")
	sb.WriteString(theme.Muted.Render("tab switch field  enter begin"))
	if !m.settings.Notifications {
		sb.WriteString("\n" + theme.Muted.Render("notifications are off; interrupts will only show in the app"))
	}
	return theme.Pane.Render(sb.String())
}

// ─── palette execution ────────────────────────────────────────────────────────

func (m Model) executePalette(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}
	switch parts[0] {
	case "next":
		return m, m.advanceCmd()
	case "deliver":
		return m, m.refreshCmd(true)
	case "dismiss":
		return m, m.actionCmd(func(context.Context) (string, error) {
			m.protocol.Dismiss()
			return "dismissed", nil
		})
	case "skip":
		if !m.snap.Showing {
			m.status = "no interrupt showing"
			return m, nil
		}
		return m.updateInterrupt(tea.KeyMsg{Type: tea.KeyCtrlN})
	case "history":
		switch m.state {
		case domain.StateCompleted:
			return m, m.advanceCmd()
		case domain.StateHistory:
			return m, m.historyView.Load()
		}
		m.status = "history opens once the run is completed"
		return m, nil
	case "export":
		return m, m.actionCmd(func(ctx context.Context) (string, error) {
			path, err := m.protocol.Export(ctx, "")
			if err != nil {
				return "", err
			}
			return "exported " + path, nil
		})
	case "new-run":
		return m, m.actionCmd(func(ctx context.Context) (string, error) {
			return "new run", m.protocol.NewRun(ctx)
		})
	case "refresh":
		return m, m.refreshCmd(false)
	default:
		m.status = "unknown command: " + parts[0]
	}
	return m, nil
}

// ─── async commands ───────────────────────────────────────────────────────────

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// refreshCmd optionally delivers due notifications as taps, runs deferred
// work and reads a fresh snapshot.
func (m Model) refreshCmd(deliver bool) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		msg := snapshotMsg{}
		if deliver {
			delivered, err := m.protocol.Deliver(ctx, true)
			msg.delivered, msg.err = len(delivered), err
		}
		m.queue.Drain()
		msg.snap = m.protocol.Status(ctx)
		return msg
	}
}

func (m Model) actionCmd(fn func(ctx context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		status, err := fn(context.Background())
		m.queue.Drain()
		return actionMsg{status: status, err: err}
	}
}

func (m Model) advanceCmd() tea.Cmd {
	return m.actionCmd(func(ctx context.Context) (string, error) {
		out, err := m.protocol.Advance(ctx)
		if err != nil {
			return "", err
		}
		if out.Unanswered > 0 {
			return fmt.Sprintf("moved on with %d interrupt(s) unanswered", out.Unanswered), nil
		}
		return fmt.Sprintf("%s → %s", out.From, out.To), nil
	})
}

func (m Model) loadInterruptsCmd() tea.Cmd {
	return func() tea.Msg {
		texts := map[string]string{}
		questions, err := m.protocol.Questions(context.Background(), 2, "interrupt", "")
		if err == nil {
			for _, q := range questions {
				texts[q.ID] = q.Text
			}
		}
		return interruptLoadedMsg{texts: texts}
	}
}
