package domain

import (
	"fmt"
	"sort"
	"strings"
)

type Part int

const (
	Part1 Part = 1
	Part2 Part = 2
	Part3 Part = 3
)

func (p Part) Validate() error {
	if p < Part1 || p > Part3 {
		return fmt.Errorf("unknown part %d", p)
	}
	return nil
}

type Type string

const (
	TypeMain          Type = "main"
	TypeInterrupt     Type = "interrupt"
	TypeContemplation Type = "contemplation"
	TypeSynthesis     Type = "synthesis"
	TypeComponents    Type = "components"
)

func (t Type) Validate() error {
	switch t {
	case TypeMain, TypeInterrupt, TypeContemplation, TypeSynthesis, TypeComponents:
		return nil
	default:
		return fmt.Errorf("unknown question type %q", t)
	}
}

type Language string

const (
	English Language = "en"
	Korean  Language = "ko"
)

func ParseLanguage(raw string) (Language, error) {
	switch lang := Language(strings.ToLower(strings.TrimSpace(raw))); lang {
	case English, Korean:
		return lang, nil
	default:
		return "", fmt.Errorf("unsupported language %q", raw)
	}
}

type Question struct {
	ID    string
	Part  Part
	Type  Type
	Order int
	Texts map[Language]string
}

// Text returns the translation for lang, falling back to English.
func (q Question) Text(lang Language) string {
	if text, ok := q.Texts[lang]; ok && text != "" {
		return text
	}
	return q.Texts[English]
}

type groupKey struct {
	part Part
	typ  Type
}

// Catalog is an immutable, ordered question bank.
type Catalog struct {
	groups map[groupKey][]Question
	byID   map[string]Question
}

func Empty() Catalog {
	return Catalog{groups: map[groupKey][]Question{}, byID: map[string]Question{}}
}

// NewCatalog groups questions by (part, type) ordered by Order then ID.
// Duplicate ids are rejected.
func NewCatalog(questions []Question) (Catalog, error) {
	c := Empty()
	for _, q := range questions {
		if strings.TrimSpace(q.ID) == "" {
			return Catalog{}, fmt.Errorf("question id is required")
		}
		if err := q.Part.Validate(); err != nil {
			return Catalog{}, fmt.Errorf("question %s: %w", q.ID, err)
		}
		if err := q.Type.Validate(); err != nil {
			return Catalog{}, fmt.Errorf("question %s: %w", q.ID, err)
		}
		if _, dup := c.byID[q.ID]; dup {
			return Catalog{}, fmt.Errorf("duplicate question id %s", q.ID)
		}
		c.byID[q.ID] = q
		k := groupKey{part: q.Part, typ: q.Type}
		c.groups[k] = append(c.groups[k], q)
	}
	for k := range c.groups {
		group := c.groups[k]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Order != group[j].Order {
				return group[i].Order < group[j].Order
			}
			return group[i].ID < group[j].ID
		})
	}
	return c, nil
}

// Questions returns the ordered list for (part, typ); unknown pairs yield an empty list.
func (c Catalog) Questions(part Part, typ Type) []Question {
	group := c.groups[groupKey{part: part, typ: typ}]
	out := make([]Question, len(group))
	copy(out, group)
	return out
}

func (c Catalog) Question(id string) (Question, bool) {
	q, ok := c.byID[id]
	return q, ok
}

// InterruptIDs lists Part 2 interrupt question ids in catalog order.
func (c Catalog) InterruptIDs() []string {
	group := c.groups[groupKey{part: Part2, typ: TypeInterrupt}]
	ids := make([]string, 0, len(group))
	for _, q := range group {
		ids = append(ids, q.ID)
	}
	return ids
}

func (c Catalog) Len() int {
	return len(c.byID)
}
