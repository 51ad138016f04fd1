package out_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	catalogout "dansprotocol/internal/modules/catalog/adapter/out"
	"dansprotocol/internal/modules/catalog/domain"
	"dansprotocol/internal/modules/catalog/service"
)

func TestBuiltinCatalogHasEveryPhase(t *testing.T) {
	t.Parallel()
	c, err := catalogout.NewYAMLSource("").Load(context.Background())
	if err != nil {
		t.Fatalf("load builtin: %v", err)
	}
	if ids := c.InterruptIDs(); len(ids) != 6 {
		t.Fatalf("expected 6 interrupt questions, got %d", len(ids))
	}
	for _, tc := range []struct {
		part domain.Part
		typ  domain.Type
	}{
		{domain.Part1, domain.TypeMain},
		{domain.Part2, domain.TypeContemplation},
		{domain.Part3, domain.TypeSynthesis},
		{domain.Part3, domain.TypeComponents},
	} {
		if len(c.Questions(tc.part, tc.typ)) == 0 {
			t.Fatalf("expected questions for part %d %s", tc.part, tc.typ)
		}
	}
	for _, q := range c.Questions(domain.Part1, domain.TypeMain) {
		if q.Texts[domain.English] == "" || q.Texts[domain.Korean] == "" {
			t.Fatalf("question %s missing a translation", q.ID)
		}
	}
}

func TestMalformedOrMissingCatalogDegradesToEmpty(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("phases: [oops"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	for _, path := range []string{bad, filepath.Join(dir, "missing.yaml")} {
		uc := service.Load(context.Background(), catalogout.NewYAMLSource(path), nil)
		if len(uc.InterruptIDs()) != 0 || len(uc.Questions(domain.Part1, domain.TypeMain)) != 0 {
			t.Fatalf("expected empty catalog for %s", path)
		}
	}
}

func TestOverrideDocumentReplacesBuiltin(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "questions.yaml")
	doc := `version: 1
phases:
  - part: 2
    type: interrupt
    questions:
      - id: only
        order: 1
        text:
          en: "Only question"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	uc := service.Load(context.Background(), catalogout.NewYAMLSource(path), nil)
	ids := uc.InterruptIDs()
	if len(ids) != 1 || ids[0] != "only" {
		t.Fatalf("expected override ids [only], got %v", ids)
	}
}
