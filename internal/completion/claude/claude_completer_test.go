package claude_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notepipe/internal/completion"
	"notepipe/internal/completion/claude"
	"notepipe/internal/config"
	"notepipe/internal/domain"
	"notepipe/internal/port"
)

func newTestCompleter(serverURL string) *claude.Completer {
	cfg := &config.CompletionConfig{
		Provider:  "claude",
		APIKey:    "test-anthropic-key",
		Model:     "claude-sonnet-4-20250514",
		MaxTokens: 1024,
	}
	return claude.NewCompleterWithEndpoint(cfg, serverURL)
}

func messageResponse(text string) string {
	return `{
		"id": "msg_01",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-20250514",
		"content": [{"type": "text", "text": ` + mustJSON(text) + `}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 10, "output_tokens": 2}
	}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestCompleter_Vision_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-anthropic-key", r.Header.Get("X-Api-Key"))

		var reqBody map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "claude-sonnet-4-20250514", reqBody["model"])
		assert.Equal(t, float64(1024), reqBody["max_tokens"])

		system := reqBody["system"].([]interface{})
		require.Len(t, system, 1)
		assert.Equal(t, "classify this", system[0].(map[string]interface{})["text"])

		messages := reqBody["messages"].([]interface{})
		require.Len(t, messages, 1)
		content := messages[0].(map[string]interface{})["content"].([]interface{})
		require.Len(t, content, 1)
		image := content[0].(map[string]interface{})
		assert.Equal(t, "image", image["type"])
		source := image["source"].(map[string]interface{})
		assert.Equal(t, "image/jpeg", source["media_type"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageResponse("WHITEBOARD")))
	}))
	defer server.Close()

	out, err := newTestCompleter(server.URL).Complete(context.Background(), port.CompletionRequest{
		Instruction: "classify this",
		Image:       &domain.Image{Data: []byte("jpeg-bytes"), MediaType: "image/jpeg", Ext: "jpg"},
	})

	require.NoError(t, err)
	assert.Equal(t, "WHITEBOARD", out)
}

func TestCompleter_Text_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.InDelta(t, 0.3, reqBody["temperature"], 1e-9)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageResponse("# Title\n\nBody")))
	}))
	defer server.Close()

	out, err := newTestCompleter(server.URL).Complete(context.Background(), port.CompletionRequest{
		Instruction: "section",
		Text:        "Body",
		Temperature: 0.3,
	})

	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nBody", out)
}

func TestCompleter_RateLimitedIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "15")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer server.Close()

	_, err := newTestCompleter(server.URL).Complete(context.Background(), port.CompletionRequest{Text: "x"})

	var rlErr *completion.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "claude", rlErr.Provider)
	assert.Equal(t, 1, calls)
}

func TestCompleter_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	_, err := newTestCompleter(server.URL).Complete(context.Background(), port.CompletionRequest{Text: "x"})

	assert.ErrorIs(t, err, domain.ErrAuth)
}

func TestCompleter_EmptyReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageResponse("")))
	}))
	defer server.Close()

	_, err := newTestCompleter(server.URL).Complete(context.Background(), port.CompletionRequest{Text: "x"})

	assert.ErrorIs(t, err, completion.ErrEmptyCompletion)
}

func TestCompleter_RejectsEmptyRequest(t *testing.T) {
	_, err := newTestCompleter("http://127.0.0.1:1").Complete(context.Background(), port.CompletionRequest{Instruction: "x"})

	assert.Error(t, err)
}
