package notes

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"notepipe/internal/completion"
	"notepipe/internal/domain"
	"notepipe/internal/port"
	"notepipe/internal/prompts"
)

// Extractor transcribes a note image with a template chosen by note type.
type Extractor struct {
	completer   port.Completer
	temperature float64
	logger      *zap.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(completer port.Completer, temperature float64, logger *zap.Logger) *Extractor {
	return &Extractor{completer: completer, temperature: temperature, logger: logger}
}

// TemplateFor returns the transcription template for a note type.
func TemplateFor(noteType domain.NoteType) prompts.Name {
	switch noteType {
	case domain.NoteTypePaper:
		return prompts.OCRPaper
	case domain.NoteTypeWhiteboard:
		return prompts.OCRWhiteboard
	default:
		return prompts.OCRImage
	}
}

// Extract returns the raw transcription of image, trimmed and without a
// wrapping code fence.
func (e *Extractor) Extract(ctx context.Context, image domain.Image, noteType domain.NoteType) (string, error) {
	tmpl := TemplateFor(noteType)
	instruction, err := prompts.Render(tmpl, nil)
	if err != nil {
		return "", domain.NewStageError(domain.KindExtractionFailure, err)
	}

	reply, err := e.completer.Complete(ctx, port.CompletionRequest{
		Instruction: instruction,
		Image:       &image,
		Temperature: e.temperature,
	})
	if err != nil {
		return "", domain.NewStageError(domain.KindExtractionFailure, fmt.Errorf("extracting text with %s: %w", tmpl, err))
	}

	text := strings.TrimSpace(StripCodeFences(reply))
	if text == "" {
		return "", domain.NewStageError(domain.KindExtractionFailure, completion.ErrEmptyCompletion)
	}

	e.logger.Debug("text extracted", zap.String("template", string(tmpl)), zap.Int("chars", len(text)))
	return text, nil
}
