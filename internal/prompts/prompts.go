package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Name identifies one of the embedded instruction templates.
type Name string

const (
	DetectNoteType   Name = "detect_note_type"
	OCRPaper         Name = "ocr_paper"
	OCRWhiteboard    Name = "ocr_whiteboard"
	OCRImage         Name = "ocr_image"
	Proofread        Name = "proofread"
	Section          Name = "section"
	ExtractMainTitle Name = "extract_main_title"
)

// TitleData feeds the extract_main_title template.
type TitleData struct {
	MaxWords int
}

// Render executes the named template with data. data may be nil for templates
// without placeholders.
func Render(name Name, data interface{}) (string, error) {
	path := fmt.Sprintf("templates/%s.tmpl", name)
	tmpl, err := template.New(string(name)+".tmpl").Option("missingkey=error").ParseFS(templatesFS, path)
	if err != nil {
		return "", fmt.Errorf("loading prompt %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

// MustRender is Render for templates known to be valid at start-up.
func MustRender(name Name, data interface{}) string {
	s, err := Render(name, data)
	if err != nil {
		panic(err)
	}
	return s
}
