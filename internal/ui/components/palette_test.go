package components

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func typeInto(p Palette, text string) Palette {
	for _, r := range text {
		p, _ = p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return p
}

func TestPaletteSubmitsSelectedMatch(t *testing.T) {
	t.Parallel()
	p := NewPalette([]PaletteCommand{{Name: "next"}, {Name: "new-run"}, {Name: "export"}})
	p.Open()
	p = typeInto(p, "ne")
	if got := p.Matches(); len(got) != 2 {
		t.Fatalf("expected 2 matches, got %+v", got)
	}
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	p, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if p.Visible() || cmd == nil {
		t.Fatalf("enter should close the palette and submit")
	}
	msg, ok := cmd().(PaletteSubmitMsg)
	if !ok || msg.Input != "new-run" {
		t.Fatalf("unexpected submit %+v", msg)
	}
}

func TestPaletteSubmitsRawTextWithoutMatch(t *testing.T) {
	t.Parallel()
	p := NewPalette([]PaletteCommand{{Name: "next"}})
	p.Open()
	p = typeInto(p, "zzz")
	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if msg, ok := cmd().(PaletteSubmitMsg); !ok || msg.Input != "zzz" {
		t.Fatalf("unexpected submit %+v", msg)
	}
}

func TestPaletteEscCancels(t *testing.T) {
	t.Parallel()
	p := NewPalette([]PaletteCommand{{Name: "next"}})
	p.Open()
	p, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if p.Visible() {
		t.Fatalf("palette should be hidden")
	}
	if _, ok := cmd().(PaletteCancelMsg); !ok {
		t.Fatalf("expected cancel message")
	}
}
