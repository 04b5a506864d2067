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

// Stage is one text-to-text refinement step.
type Stage struct {
	Name   string
	Prompt prompts.Name
}

var (
	proofreadStage = Stage{Name: "proofread", Prompt: prompts.Proofread}
	sectionStage   = Stage{Name: "section", Prompt: prompts.Section}
)

// DefaultStrategies lists the refinement stages run for each note type, in order.
var DefaultStrategies = map[domain.NoteType][]Stage{
	domain.NoteTypePaper:      {proofreadStage, sectionStage},
	domain.NoteTypeWhiteboard: {proofreadStage, sectionStage},
	domain.NoteTypeOther:      {},
}

// Refiner applies the refinement stages configured for a note type.
type Refiner struct {
	completer   port.Completer
	temperature float64
	strategies  map[domain.NoteType][]Stage
	logger      *zap.Logger
}

// NewRefiner creates a Refiner using DefaultStrategies.
func NewRefiner(completer port.Completer, temperature float64, logger *zap.Logger) *Refiner {
	return &Refiner{
		completer:   completer,
		temperature: temperature,
		strategies:  DefaultStrategies,
		logger:      logger,
	}
}

// StagesFor returns the stages applied to noteType.
func (r *Refiner) StagesFor(noteType domain.NoteType) []Stage {
	return r.strategies[noteType]
}

// Refine runs raw through the stages of noteType, each stage feeding the next.
// Types without stages get raw back unchanged. Any failing stage fails the
// whole refinement.
func (r *Refiner) Refine(ctx context.Context, raw string, noteType domain.NoteType) (string, error) {
	text := raw
	for _, stage := range r.StagesFor(noteType) {
		out, err := r.runStage(ctx, stage, text)
		if err != nil {
			return "", domain.NewStageError(domain.KindRefinementFailure, fmt.Errorf("%s stage: %w", stage.Name, err))
		}

		if stage == sectionStage {
			if missing := MissingContent(text, out); len(missing) > 0 {
				r.logger.Warn("sectioning dropped content",
					zap.Int("missing_lines", len(missing)),
					zap.String("first_missing", missing[0]))
			}
		}
		text = out
	}
	return text, nil
}

func (r *Refiner) runStage(ctx context.Context, stage Stage, text string) (string, error) {
	instruction, err := prompts.Render(stage.Prompt, nil)
	if err != nil {
		return "", err
	}

	reply, err := r.completer.Complete(ctx, port.CompletionRequest{
		Instruction: instruction,
		Text:        text,
		Temperature: r.temperature,
	})
	if err != nil {
		return "", err
	}

	out := strings.TrimSpace(StripCodeFences(reply))
	if out == "" {
		return "", completion.ErrEmptyCompletion
	}
	return out, nil
}
