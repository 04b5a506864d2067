package claude

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"notepipe/internal/completion"
	"notepipe/internal/config"
	"notepipe/internal/port"
)

const defaultModel = "claude-sonnet-4-20250514"

// Completer implements port.Completer using the Anthropic Messages API.
type Completer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewCompleter creates a Claude-based completer from the completion config.
func NewCompleter(cfg *config.CompletionConfig) *Completer {
	return newCompleter(cfg, "")
}

// NewCompleterWithEndpoint creates a completer pointing at a custom API base URL (for testing).
func NewCompleterWithEndpoint(cfg *config.CompletionConfig, endpoint string) *Completer {
	return newCompleter(cfg, endpoint)
}

func newCompleter(cfg *config.CompletionConfig, endpoint string) *Completer {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if endpoint != "" {
		opts = append(opts, option.WithBaseURL(endpoint))
	}

	return &Completer{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (c *Completer) Model() string {
	return c.model
}

func (c *Completer) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	var blocks []anthropic.ContentBlockParamUnion
	if req.Image != nil {
		encoded := base64.StdEncoding.EncodeToString(req.Image.Data)
		blocks = append(blocks, anthropic.NewImageBlockBase64(req.Image.MediaType, encoded))
	}
	if req.Text != "" {
		blocks = append(blocks, anthropic.NewTextBlock(req.Text))
	}
	if len(blocks) == 0 {
		return "", errors.New("completion request has neither image nor text")
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.Instruction != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.Instruction},
		}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", mapError(err)
	}

	if resp.StopReason == "max_tokens" {
		return "", fmt.Errorf("output truncated (stop_reason: max_tokens): response exceeded output token limit")
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", completion.ErrEmptyCompletion
	}
	return text.String(), nil
}

func mapError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		retryAfter := ""
		if apiErr.Response != nil {
			retryAfter = apiErr.Response.Header.Get("Retry-After")
		}
		return completion.StatusToError("claude", apiErr.StatusCode, apiErr.Error(), retryAfter)
	}
	return fmt.Errorf("calling anthropic API: %w", err)
}
