package notes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"notepipe/internal/domain"
	"notepipe/internal/port"
	"notepipe/internal/prompts"
)

const titleMaxWords = 8

// Titler derives a short, file-name safe title from a refined body.
type Titler struct {
	completer   port.Completer
	temperature float64
	maxLength   int
	logger      *zap.Logger
}

// NewTitler creates a Titler that bounds titles to maxLength runes.
func NewTitler(completer port.Completer, temperature float64, maxLength int, logger *zap.Logger) *Titler {
	if maxLength <= 0 {
		maxLength = 80
	}
	return &Titler{completer: completer, temperature: temperature, maxLength: maxLength, logger: logger}
}

// Title asks for a title and sanitises the reply.
func (t *Titler) Title(ctx context.Context, body string) (string, error) {
	instruction, err := prompts.Render(prompts.ExtractMainTitle, prompts.TitleData{MaxWords: titleMaxWords})
	if err != nil {
		return "", domain.NewStageError(domain.KindTitlingFailure, err)
	}

	reply, err := t.completer.Complete(ctx, port.CompletionRequest{
		Instruction: instruction,
		Text:        body,
		Temperature: t.temperature,
	})
	if err != nil {
		return "", domain.NewStageError(domain.KindTitlingFailure, fmt.Errorf("extracting title: %w", err))
	}

	title := SanitizeTitle(reply, t.maxLength)
	if title == "" {
		return "", domain.NewStageError(domain.KindTitlingFailure, fmt.Errorf("title %q is empty after sanitizing", reply))
	}

	t.logger.Debug("title extracted", zap.String("title", title))
	return title, nil
}

// SanitizeTitle turns a model reply into a title usable as a file name: first
// non-empty line, no heading markers or quotes, no characters that file
// systems reject, single spaces, at most maxLength runes.
func SanitizeTitle(reply string, maxLength int) string {
	var line string
	for _, l := range strings.Split(reply, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}

	line = strings.TrimLeft(line, "# ")
	line = strings.TrimPrefix(line, "Title:")

	var b strings.Builder
	for _, r := range line {
		switch {
		case strings.ContainsRune(`\/:*?"<>|#^[]`+"`", r):
			b.WriteRune(' ')
		case unicode.IsControl(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}

	title := strings.Join(strings.Fields(b.String()), " ")
	title = strings.Trim(title, "'‘’“”*_ ")
	title = strings.TrimLeft(title, ". ")

	if utf8.RuneCountInString(title) > maxLength {
		title = strings.TrimSpace(string([]rune(title)[:maxLength]))
	}
	return strings.TrimRight(title, ". ")
}

// BaseName joins the note date and title into the shared base name of the
// document and image, e.g. "2026-10-17 Weekly Sync".
func BaseName(date time.Time, title string) string {
	return date.Format("2006-01-02") + " " + title
}

// UniqueBaseName is BaseName followed by a short hash of the source file id,
// used when another source already owns the plain name. The same source
// always gets the same name.
func UniqueBaseName(date time.Time, title, sourceID string) string {
	sum := sha256.Sum256([]byte(sourceID))
	return BaseName(date, title) + " " + hex.EncodeToString(sum[:3])
}
