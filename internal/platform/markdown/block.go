package markdown

import "strings"

const (
	BlockStart = "<!-- protocol:start -->"
	BlockEnd   = "<!-- protocol:end -->"
)

// ReplaceBlock swaps the generated block in body, leaving text outside the
// markers alone. A body without markers gets the block appended.
func ReplaceBlock(body, generated string) string {
	block := BlockStart + "\n" + strings.TrimRight(generated, "\n") + "\n" + BlockEnd
	start := strings.Index(body, BlockStart)
	end := strings.Index(body, BlockEnd)
	if start >= 0 && end > start {
		return body[:start] + block + body[end+len(BlockEnd):]
	}
	switch {
	case strings.TrimSpace(body) == "":
		return block + "\n"
	case strings.HasSuffix(body, "\n"):
		return body + "\n" + block + "\n"
	default:
		return body + "\n\n" + block + "\n"
	}
}
