package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dansprotocol/internal/ui/theme"
)

// PaletteSubmitMsg carries the chosen command name.
type PaletteSubmitMsg struct{ Input string }

// PaletteCancelMsg is emitted on esc.
type PaletteCancelMsg struct{}

// PaletteCommand is one entry the palette can run.
type PaletteCommand struct {
	Name string
	Help string
}

var (
	paletteStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(theme.Lavender).
			Background(theme.Mantle).
			Foreground(theme.Text).
			Padding(0, 1)

	commandStyle  = lipgloss.NewStyle().Foreground(theme.Subtext0)
	selectedStyle = lipgloss.NewStyle().Foreground(theme.Peach).Bold(true)
)

// Palette filters the protocol commands by prefix. Tab completes the
// selected command, up/down move between matches and enter runs it.
type Palette struct {
	input    textinput.Model
	commands []PaletteCommand
	selected int
	visible  bool
	width    int
}

func NewPalette(commands []PaletteCommand) Palette {
	ti := textinput.New()
	ti.Prompt = "› "
	ti.Placeholder = "next, skip, export…"
	ti.CharLimit = 32
	return Palette{input: ti, commands: commands}
}

func (p Palette) Visible() bool { return p.visible }

func (p *Palette) Open() tea.Cmd {
	p.visible = true
	p.selected = 0
	p.input.SetValue("")
	return p.input.Focus()
}

func (p *Palette) SetWidth(w int) { p.width = w }

// Matches returns the commands whose name starts with the typed text.
func (p Palette) Matches() []PaletteCommand {
	prefix := strings.ToLower(strings.TrimSpace(p.input.Value()))
	out := make([]PaletteCommand, 0, len(p.commands))
	for _, c := range p.commands {
		if strings.HasPrefix(c.Name, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (p Palette) Update(msg tea.Msg) (Palette, tea.Cmd) {
	if !p.visible {
		return p, nil
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		p.input, cmd = p.input.Update(msg)
		return p, cmd
	}
	matches := p.Matches()
	switch key.String() {
	case "esc":
		p.close()
		return p, func() tea.Msg { return PaletteCancelMsg{} }
	case "enter":
		choice := strings.TrimSpace(p.input.Value())
		if p.selected < len(matches) {
			choice = matches[p.selected].Name
		}
		p.close()
		return p, func() tea.Msg { return PaletteSubmitMsg{Input: choice} }
	case "tab":
		if p.selected < len(matches) {
			p.input.SetValue(matches[p.selected].Name)
			p.input.CursorEnd()
			p.selected = 0
		}
		return p, nil
	case "up":
		if p.selected > 0 {
			p.selected--
		}
		return p, nil
	case "down":
		if p.selected < len(matches)-1 {
			p.selected++
		}
		return p, nil
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	p.selected = 0
	return p, cmd
}

func (p *Palette) close() {
	p.visible = false
	p.input.Blur()
}

func (p Palette) View() string {
	if !p.visible {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Run") + "\n")
	sb.WriteString(p.input.View() + "\n")
	matches := p.Matches()
	if len(matches) == 0 {
		sb.WriteString("\n" + theme.Muted.Render("no such command"))
	} else {
		sb.WriteString("\n")
	}
	for i, c := range matches {
		line := c.Name
		if c.Help != "" {
			line += "  " + theme.Muted.Render(c.Help)
		}
		if i == p.selected {
			sb.WriteString(selectedStyle.Render("▸ "+c.Name) + "  " + theme.Muted.Render(c.Help) + "\n")
			continue
		}
		sb.WriteString(commandStyle.Render("  "+line) + "\n")
	}
	w := max(p.width, 32)
	return paletteStyle.Width(w - 2).Render(strings.TrimRight(sb.String(), "\n"))
}
