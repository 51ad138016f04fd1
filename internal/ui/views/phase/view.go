package phase

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dansprotocol/internal/modules/protocol/dto"
	"dansprotocol/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

// Port is the minimal interface this view needs from the protocol handler.
type Port interface {
	Questions(ctx context.Context, part int, typ, lang string) ([]dto.QuestionView, error)
	Entries(ctx context.Context) ([]dto.EntryView, error)
	Components(ctx context.Context) (dto.ComponentsView, error)
	Answer(ctx context.Context, questionID, response string) (dto.RespondOutput, error)
}

// ─── messages ────────────────────────────────────────────────────────────────

// LoadedMsg carries the questions of a phase and what was already answered.
type LoadedMsg struct {
	Questions []dto.QuestionView
	Answers   map[string]string
	Err       error
}

// SavedMsg is sent after a response was written, or failed to be.
type SavedMsg struct {
	QuestionID string
	Response   string
	Err        error
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model lists the questions of one phase and edits the selected answer.
type Model struct {
	port      Port
	title     string
	part      int
	typ       string
	questions []dto.QuestionView
	answers   map[string]string
	cursor    int
	input     textarea.Model
	editing   bool
	err       error
	width     int
	height    int
}

func New(port Port) Model {
	ta := textarea.New()
	ta.Placeholder = "Write your answer…"
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetHeight(5)
	return Model{port: port, input: ta, answers: map[string]string{}}
}

// SetPhase switches the view to part/typ and loads its questions.
func (m *Model) SetPhase(title string, part int, typ string) tea.Cmd {
	m.title, m.part, m.typ = title, part, typ
	m.questions = nil
	m.cursor = 0
	m.editing = false
	m.input.Blur()
	return m.load()
}

// Editing reports whether the answer box has focus; global keys must yield.
func (m Model) Editing() bool { return m.editing }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(max(m.width-6, 20))

	case LoadedMsg:
		m.err = msg.Err
		if msg.Err == nil {
			m.questions = msg.Questions
			m.answers = msg.Answers
			if m.cursor >= len(m.questions) {
				m.cursor = 0
			}
		}

	case SavedMsg:
		if msg.Err != nil {
			// keep the box open with the text so it can be retried
			m.err = msg.Err
			return m, nil
		}
		m.err = nil
		m.answers[msg.QuestionID] = msg.Response
		m.editing = false
		m.input.Blur()
		if m.cursor < len(m.questions)-1 {
			m.cursor++
		}

	case tea.KeyMsg:
		if m.editing {
			switch msg.String() {
			case "esc":
				m.editing = false
				m.input.Blur()
				return m, nil
			case "ctrl+s":
				q, ok := m.selected()
				if !ok {
					return m, nil
				}
				return m, m.save(q.ID, m.input.Value())
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.questions)-1 {
				m.cursor++
			}
		case "enter":
			q, ok := m.selected()
			if !ok {
				return m, nil
			}
			m.editing = true
			m.input.SetValue(m.answers[q.ID])
			return m, m.input.Focus()
		}
	}
	return m, nil
}

func (m Model) View() string {
	var sb strings.Builder
	answered := 0
	for _, q := range m.questions {
		if strings.TrimSpace(m.answers[q.ID]) != "" {
			answered++
		}
	}
	sb.WriteString(theme.Title.Render(m.title))
	sb.WriteString(theme.Muted.Render(fmt.Sprintf("  %d/%d answered", answered, len(m.questions))) + "\n\n")
	if len(m.questions) == 0 {
		sb.WriteString(theme.Muted.Render("No questions for this phase.") + "\n")
	}
	for i, q := range m.questions {
		marker := "  "
		if strings.TrimSpace(m.answers[q.ID]) != "" {
			marker = theme.Done.Render("✓ ")
		}
		text := q.Text
		if i == m.cursor {
			text = theme.Hot.Render("› " + text)
		} else {
			text = "  " + text
		}
		sb.WriteString(marker + text + "\n")
	}
	if q, ok := m.selected(); ok {
		sb.WriteString("\n")
		if m.editing {
			sb.WriteString(theme.PaneActive.Render(m.input.View()) + "\n")
			sb.WriteString(theme.Muted.Render("ctrl+s save  esc cancel") + "\n")
		} else if answer := m.answers[q.ID]; answer != "" {
			sb.WriteString(theme.Pane.Render(answer) + "\n")
		}
	}
	if m.err != nil {
		sb.WriteString(theme.Error.Render("Not saved: "+m.err.Error()) + "\n")
	}
	return lipgloss.NewStyle().Width(m.width).Height(m.height).Render(sb.String())
}

func (m Model) selected() (dto.QuestionView, bool) {
	if m.cursor < 0 || m.cursor >= len(m.questions) {
		return dto.QuestionView{}, false
	}
	return m.questions[m.cursor], true
}

// ─── async commands ───────────────────────────────────────────────────────────

func (m Model) load() tea.Cmd {
	part, typ := m.part, m.typ
	return func() tea.Msg {
		ctx := context.Background()
		questions, err := m.port.Questions(ctx, part, typ, "")
		if err != nil {
			return LoadedMsg{Err: err}
		}
		answers := map[string]string{}
		if typ == "components" {
			c, err := m.port.Components(ctx)
			if err == nil {
				answers["anti_vision"] = c.AntiVision
				answers["vision"] = c.Vision
				answers["one_year_goal"] = c.OneYearGoal
				answers["one_month_project"] = c.OneMonthProject
				answers["daily_levers"] = strings.Join(c.DailyLevers, "\n")
				answers["constraints"] = c.Constraints
			}
			return LoadedMsg{Questions: questions, Answers: answers}
		}
		entries, err := m.port.Entries(ctx)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		for _, e := range entries {
			answers[e.QuestionID] = e.Response
		}
		return LoadedMsg{Questions: questions, Answers: answers}
	}
}

func (m Model) save(questionID, response string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.port.Answer(context.Background(), questionID, response)
		if err != nil {
			return SavedMsg{QuestionID: questionID, Err: err}
		}
		saved := strings.TrimSpace(response)
		if out.Entry != nil {
			saved = out.Entry.Response
		}
		return SavedMsg{QuestionID: questionID, Response: saved}
	}
}
