package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dansprotocol/internal/modules/protocol/dto"
	"dansprotocol/internal/ui/theme"
)

// Port is the minimal interface this view needs from the protocol handler.
type Port interface {
	History(ctx context.Context) ([]dto.SessionView, error)
}

// LoadedMsg carries the completed sessions, oldest first.
type LoadedMsg struct {
	Sessions []dto.SessionView
	Err      error
}

// Model shows completed runs in a scrollable viewport.
type Model struct {
	port     Port
	viewport viewport.Model
	sessions []dto.SessionView
	err      error
	width    int
	height   int
}

func New(port Port) Model {
	return Model{port: port, viewport: viewport.New(0, 0)}
}

func (m Model) Load() tea.Cmd {
	return func() tea.Msg {
		sessions, err := m.port.History(context.Background())
		return LoadedMsg{Sessions: sessions, Err: err}
	}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-2, 1)
		m.viewport.SetContent(m.render())
	case LoadedMsg:
		m.sessions, m.err = msg.Sessions, msg.Err
		m.viewport.SetContent(m.render())
		m.viewport.GotoBottom()
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	header := theme.Title.Render("History") + theme.Muted.Render(fmt.Sprintf("  %d completed", len(m.sessions)))
	return lipgloss.JoinVertical(lipgloss.Left, header, "", m.viewport.View())
}

func (m Model) render() string {
	if m.err != nil {
		return theme.Error.Render("History unavailable: " + m.err.Error())
	}
	if len(m.sessions) == 0 {
		return theme.Muted.Render("No completed runs yet.")
	}
	var sb strings.Builder
	for _, s := range m.sessions {
		sb.WriteString(theme.Hot.Render(s.StartDate))
		sb.WriteString(fmt.Sprintf("  woke %s  [%s]", s.WakeUp, s.Language))
		if s.CompletedAt != "" {
			sb.WriteString(theme.Done.Render("  completed " + s.CompletedAt))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
