package out

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	catalog "dansprotocol/internal/modules/catalog/domain"
	catalogin "dansprotocol/internal/modules/catalog/port/in"
	"dansprotocol/internal/modules/journal/domain"
	journalout "dansprotocol/internal/modules/journal/port/out"
	"dansprotocol/internal/platform/markdown"
	"dansprotocol/internal/platform/slug"
)

// MarkdownExporter writes one note per session under dir/YYYY/MM. Exporting
// again only rewrites the generated block, so notes added by hand survive.
type MarkdownExporter struct {
	dir       string
	questions catalogin.Usecase
}

func NewMarkdownExporter(dir string, questions catalogin.Usecase) journalout.Exporter {
	return &MarkdownExporter{dir: dir, questions: questions}
}

func (e *MarkdownExporter) Export(_ context.Context, session domain.Session, entries []domain.Entry, components *domain.LifeGameComponents) (string, error) {
	date := session.StartDate
	dir := filepath.Join(e.dir, date.Format("2006"), date.Format("01"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	// The name depends only on the session so later edits to the vision
	// keep updating the same note.
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.md", date.Format("02"), slug.Make(shortID(session.ID), "protocol")))

	title := "Dan's Protocol"
	if components != nil && firstLine(components.Vision) != "" {
		title = firstLine(components.Vision)
	}
	note := markdown.Note{Meta: map[string]any{}, Body: fmt.Sprintf("# %s, %s\n", title, date.Format("2006-01-02"))}
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if note, err = markdown.Parse(string(existing)); err != nil {
			return "", fmt.Errorf("read existing export: %w", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("read existing export: %w", err)
	}

	note.Meta["id"] = session.ID
	note.Meta["start_date"] = date.Format("2006-01-02")
	note.Meta["wake_up_time"] = session.WakeUpTime.Format("15:04")
	note.Meta["language"] = string(session.Language)
	note.Meta["status"] = string(session.Status)
	if !session.CompletedAt.IsZero() {
		note.Meta["completed_at"] = session.CompletedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	note.Body = markdown.ReplaceBlock(note.Body, e.render(session.Language, entries, components))

	rendered, err := note.Render()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

func (e *MarkdownExporter) render(lang catalog.Language, entries []domain.Entry, components *domain.LifeGameComponents) string {
	b := strings.Builder{}
	for _, part := range []catalog.Part{catalog.Part1, catalog.Part2, catalog.Part3} {
		written := false
		for _, entry := range entries {
			if entry.Part != part || !entry.Answered() {
				continue
			}
			if !written {
				fmt.Fprintf(&b, "## Part %d\n\n", part)
				written = true
			}
			fmt.Fprintf(&b, "### %s\n\n%s\n\n", e.questionText(entry.QuestionKey, lang), strings.TrimSpace(entry.Response))
		}
	}
	if components != nil {
		b.WriteString("## Life Game\n\n")
		for _, row := range []struct{ label, value string }{
			{"Anti-vision", components.AntiVision},
			{"Vision", components.Vision},
			{"One-year goal", components.OneYearGoal},
			{"One-month project", components.OneMonthProject},
			{"Constraints", components.Constraints},
		} {
			if strings.TrimSpace(row.value) != "" {
				fmt.Fprintf(&b, "- **%s:** %s\n", row.label, row.value)
			}
		}
		if len(components.DailyLevers) > 0 {
			b.WriteString("- **Daily levers:**\n")
			for _, lever := range components.DailyLevers {
				fmt.Fprintf(&b, "  - %s\n", lever)
			}
		}
	}
	return b.String()
}

func (e *MarkdownExporter) questionText(id string, lang catalog.Language) string {
	if e.questions == nil {
		return id
	}
	if q, ok := e.questions.Question(id); ok {
		if text := q.Text(lang); text != "" {
			return text
		}
	}
	return id
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
