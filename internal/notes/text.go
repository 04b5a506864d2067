package notes

import "strings"

// StripCodeFences removes a Markdown code fence wrapping the whole of s, such
// as "```markdown\n...\n```". Fences inside the text are kept.
func StripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return s
	}

	firstNL := strings.IndexByte(trimmed, '\n')
	if firstNL < 0 {
		return s
	}
	inner := trimmed[firstNL+1 : len(trimmed)-3]
	// An inner fence means the outer markers belong to separate blocks.
	if strings.Contains(inner, "\n```") || strings.HasPrefix(inner, "```") {
		return s
	}
	return strings.TrimRight(inner, " \t\r\n")
}
