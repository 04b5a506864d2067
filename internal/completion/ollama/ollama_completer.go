package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"notepipe/internal/completion"
	"notepipe/internal/config"
	"notepipe/internal/port"
)

const (
	defaultHost  = "http://localhost:11434"
	defaultModel = "llava"
)

// Completer implements port.Completer against a local Ollama server.
type Completer struct {
	client    *api.Client
	model     string
	maxTokens int
}

// NewCompleter creates an Ollama completer. cfg.Endpoint is the server URL; the
// GitHub Models default is replaced by the local Ollama address.
func NewCompleter(cfg *config.CompletionConfig) (*Completer, error) {
	host := cfg.Endpoint
	if host == "" || strings.Contains(host, "models.github.ai") {
		host = defaultHost
	}
	return NewCompleterWithEndpoint(cfg, host)
}

// NewCompleterWithEndpoint creates a completer for the Ollama server at endpoint.
func NewCompleterWithEndpoint(cfg *config.CompletionConfig, endpoint string) (*Completer, error) {
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing ollama endpoint %q: %w", endpoint, err)
	}
	model := cfg.Model
	if model == "" || strings.Contains(model, "/") {
		model = defaultModel
	}
	return &Completer{
		client:    api.NewClient(base, &http.Client{Timeout: cfg.Timeout()}),
		model:     model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (c *Completer) Model() string {
	return c.model
}

func (c *Completer) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	user := api.Message{Role: "user", Content: req.Text}
	if req.Image != nil {
		user.Images = []api.ImageData{req.Image.Data}
	}

	options := map[string]interface{}{
		"temperature": req.Temperature,
	}
	if c.maxTokens > 0 {
		options["num_predict"] = c.maxTokens
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{Role: "system", Content: req.Instruction},
			user,
		},
		Stream:  &stream,
		Options: options,
	}

	var text strings.Builder
	err := c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		text.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", mapError(err)
	}

	if strings.TrimSpace(text.String()) == "" {
		return "", completion.ErrEmptyCompletion
	}
	return text.String(), nil
}

func mapError(err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return completion.StatusToError("ollama", statusErr.StatusCode, statusErr.ErrorMessage, "")
	}
	return fmt.Errorf("calling ollama API: %w", err)
}
