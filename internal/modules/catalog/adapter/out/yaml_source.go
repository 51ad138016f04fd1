package out

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"dansprotocol/internal/modules/catalog/domain"
	catalogout "dansprotocol/internal/modules/catalog/port/out"
)

//go:embed questions.yaml
var builtinQuestions []byte

type document struct {
	Version int `yaml:"version"`
	Phases  []struct {
		Part      int    `yaml:"part"`
		Type      string `yaml:"type"`
		Questions []struct {
			ID    string            `yaml:"id"`
			Order int               `yaml:"order"`
			Text  map[string]string `yaml:"text"`
		} `yaml:"questions"`
	} `yaml:"phases"`
}

// YAMLSource decodes a catalog document from a file, or from the built-in
// document when path is empty.
type YAMLSource struct {
	path string
}

func NewYAMLSource(path string) catalogout.Source {
	return &YAMLSource{path: path}
}

func (s *YAMLSource) Load(_ context.Context) (domain.Catalog, error) {
	raw := builtinQuestions
	if s.path != "" {
		b, err := os.ReadFile(s.path)
		if err != nil {
			return domain.Catalog{}, fmt.Errorf("read catalog: %w", err)
		}
		raw = b
	}
	return Decode(raw)
}

func Decode(raw []byte) (domain.Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return domain.Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	if doc.Version != 1 {
		return domain.Catalog{}, fmt.Errorf("unsupported catalog version %d", doc.Version)
	}
	questions := make([]domain.Question, 0)
	for _, phase := range doc.Phases {
		for _, q := range phase.Questions {
			texts := make(map[domain.Language]string, len(q.Text))
			for lang, text := range q.Text {
				texts[domain.Language(lang)] = text
			}
			questions = append(questions, domain.Question{
				ID:    q.ID,
				Part:  domain.Part(phase.Part),
				Type:  domain.Type(phase.Type),
				Order: q.Order,
				Texts: texts,
			})
		}
	}
	return domain.NewCatalog(questions)
}
