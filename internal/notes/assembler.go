package notes

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"notepipe/internal/domain"
)

// AssembleInput is everything the Assembler needs for one note.
type AssembleInput struct {
	Title      string
	Body       string
	NoteType   domain.NoteType
	SourceDate time.Time
	SourceName string
	Image      domain.Image
	Folder     string
	// BaseName overrides the date and title name when set.
	BaseName string
}

// Assembler renders the Markdown document and names the document/image pair.
type Assembler struct {
	now       func() time.Time
	linkStyle domain.LinkStyle
}

// NewAssembler creates an Assembler. now supplies the processed-at timestamp.
func NewAssembler(now func() time.Time, linkStyle domain.LinkStyle) *Assembler {
	if now == nil {
		now = time.Now
	}
	if linkStyle == "" {
		linkStyle = domain.LinkStyleWiki
	}
	return &Assembler{now: now, linkStyle: linkStyle}
}

// Assemble builds the artifact for in. Apart from the processed-at line the
// output depends only on in.
func (a *Assembler) Assemble(in AssembleInput) domain.OutputArtifact {
	base := in.BaseName
	if base == "" {
		base = BaseName(in.SourceDate, in.Title)
	}
	imageName := base + "." + in.Image.Ext

	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %s\n", yamlScalar(in.Title))
	fmt.Fprintf(&b, "note-type: %s\n", in.NoteType)
	fmt.Fprintf(&b, "source-date: %s\n", in.SourceDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "source-file: %s\n", yamlScalar(in.SourceName))
	fmt.Fprintf(&b, "processed-at: %s\n", a.now().Format("2006-01-02 15:04"))
	b.WriteString("---\n\n")
	b.WriteString(a.imageLink(in.Title, imageName))
	b.WriteString("\n\n")
	b.WriteString(strings.TrimRight(in.Body, "\n"))
	b.WriteString("\n")

	return domain.OutputArtifact{
		BaseName:     base,
		Markdown:     []byte(b.String()),
		Image:        in.Image,
		DocumentName: base + ".md",
		ImageName:    imageName,
		Folder:       in.Folder,
	}
}

// IsDocumentFor reports whether markdown is a document assembled from the
// source file named sourceName, judged by its source-file header line.
func IsDocumentFor(markdown []byte, sourceName string) bool {
	text := string(markdown)
	if !strings.HasPrefix(text, "---\n") {
		return false
	}
	header, _, ok := strings.Cut(text[len("---\n"):], "\n---\n")
	if !ok {
		return false
	}
	want := "source-file: " + yamlScalar(sourceName)
	for _, line := range strings.Split(header, "\n") {
		if line == want {
			return true
		}
	}
	return false
}

func (a *Assembler) imageLink(title, imageName string) string {
	if a.linkStyle == domain.LinkStyleMarkdown {
		return fmt.Sprintf("![%s](%s)", title, url.PathEscape(imageName))
	}
	return fmt.Sprintf("![[%s]]", imageName)
}

// yamlScalar quotes s when it would not survive as a plain YAML scalar.
func yamlScalar(s string) string {
	if s == "" {
		return `""`
	}
	needsQuote := strings.ContainsAny(s[:1], "!&*[]{}|>'\"%@`#,?:-") ||
		strings.Contains(s, ": ") || strings.Contains(s, " #") ||
		strings.HasSuffix(s, ":") || strings.TrimSpace(s) != s
	if !needsQuote {
		return s
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
	return `"` + escaped + `"`
}
