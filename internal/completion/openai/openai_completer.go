package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"notepipe/internal/completion"
	"notepipe/internal/config"
	"notepipe/internal/port"
)

const (
	defaultBaseURL = "https://models.github.ai/inference"
	defaultModel   = "openai/gpt-4.1"
)

// Completer implements port.Completer against an OpenAI-compatible Chat
// Completions API. GitHub Models is the default endpoint.
type Completer struct {
	apiKey    string
	model     string
	endpoint  string
	maxTokens int
	client    *http.Client
}

// NewCompleter creates a completer from the completion config. cfg.Endpoint is
// the API base URL; /chat/completions is appended.
func NewCompleter(cfg *config.CompletionConfig) *Completer {
	base := cfg.Endpoint
	if base == "" {
		base = defaultBaseURL
	}
	return newCompleter(cfg, strings.TrimRight(base, "/")+"/chat/completions")
}

// NewCompleterWithEndpoint creates a completer posting to the exact endpoint URL (for testing).
func NewCompleterWithEndpoint(cfg *config.CompletionConfig, endpoint string) *Completer {
	return newCompleter(cfg, endpoint)
}

func newCompleter(cfg *config.CompletionConfig, endpoint string) *Completer {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout()
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	return &Completer{
		apiKey:    cfg.APIKey,
		model:     model,
		endpoint:  endpoint,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: timeout},
	}
}

func (c *Completer) Model() string {
	return c.model
}

func (c *Completer) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	reqBody := map[string]interface{}{
		"model":       c.model,
		"max_tokens":  c.maxTokens,
		"temperature": req.Temperature,
		"messages": []map[string]interface{}{
			{
				"role":    "system",
				"content": req.Instruction,
			},
			{
				"role":    "user",
				"content": buildUserContent(req),
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling openai API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", completion.StatusToError("openai", resp.StatusCode, string(respBody), resp.Header.Get("Retry-After"))
	}

	return parseResponse(respBody)
}

// buildUserContent returns a plain string for text calls and content blocks for
// vision calls.
func buildUserContent(req port.CompletionRequest) interface{} {
	if req.Image == nil {
		return req.Text
	}

	encoded := base64.StdEncoding.EncodeToString(req.Image.Data)
	blocks := []map[string]interface{}{
		{
			"type": "image_url",
			"image_url": map[string]interface{}{
				"url": fmt.Sprintf("data:%s;base64,%s", req.Image.MediaType, encoded),
			},
		},
	}
	if req.Text != "" {
		blocks = append(blocks, map[string]interface{}{
			"type": "text",
			"text": req.Text,
		})
	}
	return blocks
}

// apiResponse models the Chat Completions API response.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func parseResponse(body []byte) (string, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response: %w", completion.ErrEmptyCompletion)
	}

	if resp.Choices[0].FinishReason == "length" {
		return "", fmt.Errorf("output truncated (finish_reason: length): response exceeded output token limit")
	}

	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", completion.ErrEmptyCompletion
	}
	return text, nil
}
