package notes

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"notepipe/internal/domain"
)

var markdown = goldmark.New()

// ParseSections splits a Markdown body at its top-level headings. Text before
// the first heading becomes a section with Level 0 and no heading.
func ParseSections(body string) []domain.Section {
	src := []byte(body)
	doc := markdown.Parser().Parse(text.NewReader(src))

	type headingSpan struct {
		level      int
		title      string
		start, end int
	}
	var spans []headingSpan
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		first := h.Lines().At(0)
		last := h.Lines().At(h.Lines().Len() - 1)
		spans = append(spans, headingSpan{
			level: h.Level,
			title: strings.TrimSpace(string(h.Lines().Value(src))),
			start: lineStart(src, first.Start),
			end:   headingEnd(src, lineStart(src, first.Start), last.Stop),
		})
	}

	var sections []domain.Section
	preambleEnd := len(src)
	if len(spans) > 0 {
		preambleEnd = spans[0].start
	}
	if pre := strings.TrimSpace(string(src[:preambleEnd])); pre != "" {
		sections = append(sections, domain.Section{Text: pre})
	}
	for i, s := range spans {
		stop := len(src)
		if i+1 < len(spans) {
			stop = spans[i+1].start
		}
		sections = append(sections, domain.Section{
			Heading: s.title,
			Level:   s.level,
			Text:    strings.TrimSpace(string(src[min(s.end, stop):stop])),
		})
	}
	return sections
}

// MissingContent returns the non-heading lines of before that no longer appear
// in after, comparing with collapsed whitespace.
func MissingContent(before, after string) []string {
	haystack := collapse(after)
	var missing []string
	for _, line := range contentLines(before) {
		if !strings.Contains(haystack, line) {
			missing = append(missing, line)
		}
	}
	return missing
}

// contentLines returns the text lines of every non-heading leaf block.
func contentLines(body string) []string {
	src := []byte(body)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var lines []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Type() != ast.TypeBlock {
			return ast.WalkContinue, nil
		}
		if _, ok := n.(*ast.Heading); ok {
			return ast.WalkSkipChildren, nil
		}
		segs := n.Lines()
		for i := 0; i < segs.Len(); i++ {
			seg := segs.At(i)
			if line := collapse(string(seg.Value(src))); line != "" {
				lines = append(lines, line)
			}
		}
		return ast.WalkContinue, nil
	})
	return lines
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func lineStart(src []byte, pos int) int {
	for pos > 0 && src[pos-1] != '\n' {
		pos--
	}
	return pos
}

// headingEnd returns the offset just past the heading that starts at start and
// whose text ends at pos. Setext headings include their underline.
func headingEnd(src []byte, start, pos int) int {
	end := pos
	if end == 0 || src[end-1] != '\n' {
		end = lineEnd(src, pos)
	}
	if strings.HasPrefix(strings.TrimLeft(string(src[start:end]), " "), "#") {
		return end
	}
	next := lineEnd(src, end)
	underline := strings.TrimSpace(string(src[end:next]))
	if underline == "" {
		return end
	}
	if strings.Trim(underline, "=") == "" || strings.Trim(underline, "-") == "" {
		return next
	}
	return end
}

func lineEnd(src []byte, pos int) int {
	for pos < len(src) && src[pos] != '\n' {
		pos++
	}
	if pos < len(src) {
		pos++
	}
	return pos
}
