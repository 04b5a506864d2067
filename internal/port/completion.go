package port

import (
	"context"

	"notepipe/internal/domain"
)

// CompletionRequest carries a single prompt for a completion provider.
// Image is set for vision calls and nil for text-only calls.
type CompletionRequest struct {
	Instruction string
	Image       *domain.Image
	Text        string
	Temperature float64
}

// Completer abstracts an LLM chat completion endpoint.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Model() string
}
