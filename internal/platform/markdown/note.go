package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const fence = "---\n"

// Note is a markdown document with an optional YAML frontmatter block.
type Note struct {
	Meta map[string]any
	Body string
}

// Parse splits content into frontmatter and body. Content without a leading
// fence is all body.
func Parse(content string) (Note, error) {
	if !strings.HasPrefix(content, fence) {
		return Note{Meta: map[string]any{}, Body: content}, nil
	}
	rest := strings.TrimPrefix(content, fence)
	idx := strings.Index(rest, "\n"+fence)
	if idx < 0 {
		return Note{}, fmt.Errorf("invalid frontmatter: missing closing fence")
	}
	meta := map[string]any{}
	if err := yaml.Unmarshal([]byte(rest[:idx]), &meta); err != nil {
		return Note{}, fmt.Errorf("unmarshal frontmatter: %w", err)
	}
	if meta == nil {
		meta = map[string]any{}
	}
	body := rest[idx+len(fence)+1:]
	return Note{Meta: meta, Body: strings.TrimPrefix(body, "\n")}, nil
}

func (n Note) Render() (string, error) {
	buf := bytes.Buffer{}
	if len(n.Meta) > 0 {
		raw, err := yaml.Marshal(n.Meta)
		if err != nil {
			return "", fmt.Errorf("marshal frontmatter: %w", err)
		}
		buf.WriteString(fence)
		buf.Write(raw)
		buf.WriteString(fence)
		buf.WriteString("\n")
	}
	buf.WriteString(n.Body)
	return buf.String(), nil
}
