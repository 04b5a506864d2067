package notes

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"notepipe/internal/completion"
	"notepipe/internal/domain"
	"notepipe/internal/port"
	"notepipe/internal/prompts"
)

// Classifier decides the NoteType of a note image with one vision completion.
type Classifier struct {
	completer   port.Completer
	temperature float64
	logger      *zap.Logger
}

// NewClassifier creates a Classifier.
func NewClassifier(completer port.Completer, temperature float64, logger *zap.Logger) *Classifier {
	return &Classifier{completer: completer, temperature: temperature, logger: logger}
}

// Classify returns the note type of image. Unrecognised labels map to OTHER.
func (c *Classifier) Classify(ctx context.Context, image domain.Image) (domain.NoteType, error) {
	instruction, err := prompts.Render(prompts.DetectNoteType, nil)
	if err != nil {
		return "", domain.NewStageError(domain.KindClassificationFailure, err)
	}

	reply, err := c.completer.Complete(ctx, port.CompletionRequest{
		Instruction: instruction,
		Image:       &image,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", domain.NewStageError(domain.KindClassificationFailure, fmt.Errorf("detecting note type: %w", err))
	}

	label := NormalizeLabel(reply)
	if label == "" {
		return "", domain.NewStageError(domain.KindClassificationFailure, completion.ErrEmptyCompletion)
	}

	noteType := labelToNoteType(label)
	c.logger.Debug("note classified", zap.String("label", label), zap.String("note_type", string(noteType)))
	return noteType, nil
}

// NormalizeLabel trims a classifier reply, drops surrounding quotes, backticks
// and trailing punctuation, and upper-cases it.
func NormalizeLabel(reply string) string {
	label := strings.TrimFunc(reply, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || r == '`'
	})
	return strings.ToUpper(label)
}

// labelToNoteType maps a reply onto a NoteType when it names exactly one known
// label. Replies naming none or both, such as "not a WHITEBOARD, it is PAPER",
// map to OTHER, whose passthrough keeps the extracted text unchanged.
func labelToNoteType(label string) domain.NoteType {
	found := domain.NoteTypeOther
	for _, word := range strings.FieldsFunc(label, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z')
	}) {
		nt := domain.ParseNoteType(word)
		if nt == domain.NoteTypeOther || nt == found {
			continue
		}
		if found != domain.NoteTypeOther {
			return domain.NoteTypeOther
		}
		found = nt
	}
	return found
}
