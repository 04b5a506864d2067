package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"notepipe/internal/completion"
	"notepipe/internal/config"
	"notepipe/internal/port"
)

const defaultModel = "gemini-2.0-flash"

// Completer implements port.Completer using the Gemini API.
type Completer struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

// NewCompleter creates a Gemini-based completer from the completion config.
func NewCompleter(ctx context.Context, cfg *config.CompletionConfig) (*Completer, error) {
	return newCompleter(ctx, cfg, "")
}

// NewCompleterWithEndpoint creates a completer pointing at a custom API base URL (for testing).
func NewCompleterWithEndpoint(ctx context.Context, cfg *config.CompletionConfig, endpoint string) (*Completer, error) {
	return newCompleter(ctx, cfg, endpoint)
}

func newCompleter(ctx context.Context, cfg *config.CompletionConfig, endpoint string) (*Completer, error) {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := int32(cfg.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if endpoint != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: endpoint}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Completer{client: client, model: model, maxTokens: maxTokens}, nil
}

func (c *Completer) Model() string {
	return c.model
}

func (c *Completer) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	var parts []*genai.Part
	if req.Image != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, req.Image.MediaType))
	}
	if req.Text != "" {
		parts = append(parts, genai.NewPartFromText(req.Text))
	}
	if len(parts) == 0 {
		return "", errors.New("completion request has neither image nor text")
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: c.maxTokens,
	}
	if req.Instruction != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.Instruction, genai.RoleUser)
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, genCfg)
	if err != nil {
		return "", mapError(err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", completion.ErrEmptyCompletion
	}
	return text, nil
}

func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return completion.StatusToError("gemini", apiErr.Code, apiErr.Message, "")
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return completion.StatusToError("gemini", apiErrPtr.Code, apiErrPtr.Message, "")
	}
	return fmt.Errorf("calling gemini API: %w", err)
}
