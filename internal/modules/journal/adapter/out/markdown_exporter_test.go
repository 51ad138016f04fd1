package out_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	catalog "dansprotocol/internal/modules/catalog/domain"
	journalstore "dansprotocol/internal/modules/journal/adapter/out"
	"dansprotocol/internal/modules/journal/domain"
)

type staticQuestions struct{}

func (staticQuestions) Questions(catalog.Part, catalog.Type) []catalog.Question { return nil }

func (staticQuestions) Question(id string) (catalog.Question, bool) {
	if id != "p1_belief" {
		return catalog.Question{}, false
	}
	return catalog.Question{ID: id, Texts: map[catalog.Language]string{catalog.English: "What do you believe?"}}, true
}

func (staticQuestions) InterruptIDs() []string { return nil }

func TestMarkdownExportKeepsHandWrittenNotes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	exporter := journalstore.NewMarkdownExporter(dir, staticQuestions{})

	start := time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)
	session := domain.Session{
		ID:          "s1",
		StartDate:   start,
		WakeUpTime:  start.Add(7 * time.Hour),
		Language:    catalog.English,
		Status:      domain.StatusCompleted,
		CreatedAt:   start,
		CompletedAt: start.Add(20 * time.Hour),
	}
	entries := []domain.Entry{
		{ID: "e1", SessionID: "s1", Part: catalog.Part1, QuestionKey: "p1_belief", Response: "effort compounds"},
		{ID: "e2", SessionID: "s1", Part: catalog.Part2, QuestionKey: "p2_alive", Response: "writing"},
	}
	components := &domain.LifeGameComponents{SessionID: "s1", Vision: "Calm Builder", DailyLevers: []string{"write", "walk"}}

	path, err := exporter.Export(ctx, session, entries, components)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if want := filepath.Join(dir, "2026", "04", "09-s1.md"); path != want {
		t.Fatalf("path = %s, want %s", path, want)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	for _, want := range []string{"id: s1", "# Calm Builder, 2026-04-09", "### What do you believe?", "### p2_alive", "  - walk"} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("export missing %q:\n%s", want, raw)
		}
	}

	if err := os.WriteFile(path, append(raw, []byte("\nreflection added later\n")...), 0o644); err != nil {
		t.Fatalf("append notes: %v", err)
	}
	entries[1].Response = "teaching"
	components.Vision = "Patient Maker"
	again, err := exporter.Export(ctx, session, entries, components)
	if err != nil {
		t.Fatalf("re-export: %v", err)
	}
	if again != path {
		t.Fatalf("editing the vision moved the note to %s", again)
	}
	raw, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("read re-export: %v", err)
	}
	if !strings.Contains(string(raw), "reflection added later") || !strings.Contains(string(raw), "teaching") || strings.Contains(string(raw), "writing\n") {
		t.Fatalf("re-export did not replace only the generated block:\n%s", raw)
	}
}
