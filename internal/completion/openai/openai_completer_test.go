package openai_test

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
	"notepipe/internal/completion/openai"
	"notepipe/internal/config"
	"notepipe/internal/domain"
	"notepipe/internal/port"
)

func newTestCompleter(serverURL string) *openai.Completer {
	cfg := &config.CompletionConfig{
		Provider:    "openai",
		APIKey:      "test-gh-token",
		Model:       "openai/gpt-4.1",
		TimeoutSecs: 30,
		MaxTokens:   2048,
	}
	return openai.NewCompleterWithEndpoint(cfg, serverURL)
}

func successResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
	}
}

func TestCompleter_Vision_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-gh-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var reqBody map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "openai/gpt-4.1", reqBody["model"])
		assert.Equal(t, float64(2048), reqBody["max_tokens"])
		assert.Equal(t, float64(0), reqBody["temperature"])

		messages := reqBody["messages"].([]interface{})
		require.Len(t, messages, 2)
		system := messages[0].(map[string]interface{})
		assert.Equal(t, "system", system["role"])
		assert.Equal(t, "classify this", system["content"])

		user := messages[1].(map[string]interface{})
		assert.Equal(t, "user", user["role"])
		blocks := user["content"].([]interface{})
		require.Len(t, blocks, 1)
		img := blocks[0].(map[string]interface{})
		assert.Equal(t, "image_url", img["type"])
		url := img["image_url"].(map[string]interface{})["url"].(string)
		assert.Equal(t, "data:image/png;base64,iVBO", url)

		_ = json.NewEncoder(w).Encode(successResponse("PAPER"))
	}))
	defer server.Close()

	c := newTestCompleter(server.URL)
	out, err := c.Complete(context.Background(), port.CompletionRequest{
		Instruction: "classify this",
		Image:       &domain.Image{Data: []byte{0x89, 0x50, 0x4e}, MediaType: "image/png", Ext: "png"},
	})

	require.NoError(t, err)
	assert.Equal(t, "PAPER", out)
	assert.Equal(t, "openai/gpt-4.1", c.Model())
}

func TestCompleter_Text_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.InDelta(t, 0.3, reqBody["temperature"], 1e-9)

		messages := reqBody["messages"].([]interface{})
		user := messages[1].(map[string]interface{})
		assert.Equal(t, "raw notes", user["content"])

		_ = json.NewEncoder(w).Encode(successResponse("clean notes"))
	}))
	defer server.Close()

	out, err := newTestCompleter(server.URL).Complete(context.Background(), port.CompletionRequest{
		Instruction: "proofread",
		Text:        "raw notes",
		Temperature: 0.3,
	})

	require.NoError(t, err)
	assert.Equal(t, "clean notes", out)
}

func TestCompleter_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limit"}`))
	}))
	defer server.Close()

	_, err := newTestCompleter(server.URL).Complete(context.Background(), port.CompletionRequest{Text: "x"})

	var rlErr *completion.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "openai", rlErr.Provider)
}

func TestCompleter_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad credentials"}`))
	}))
	defer server.Close()

	_, err := newTestCompleter(server.URL).Complete(context.Background(), port.CompletionRequest{Text: "x"})

	assert.ErrorIs(t, err, domain.ErrAuth)
}

func TestCompleter_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestCompleter(server.URL).Complete(context.Background(), port.CompletionRequest{Text: "x"})

	var statusErr *completion.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.NotErrorIs(t, err, domain.ErrAuth)
}

func TestCompleter_EmptyReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(successResponse("   \n"))
	}))
	defer server.Close()

	_, err := newTestCompleter(server.URL).Complete(context.Background(), port.CompletionRequest{Text: "x"})

	assert.ErrorIs(t, err, completion.ErrEmptyCompletion)
}

func TestCompleter_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := newTestCompleter(server.URL).Complete(context.Background(), port.CompletionRequest{Text: "x"})

	assert.ErrorIs(t, err, completion.ErrEmptyCompletion)
}

func TestCompleter_Truncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"half"},"finish_reason":"length"}]}`))
	}))
	defer server.Close()

	_, err := newTestCompleter(server.URL).Complete(context.Background(), port.CompletionRequest{Text: "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated")
}

func TestNewCompleter_AppendsChatPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/inference/chat/completions", r.URL.Path)
		_ = json.NewEncoder(w).Encode(successResponse("ok"))
	}))
	defer server.Close()

	c := openai.NewCompleter(&config.CompletionConfig{APIKey: "k", Endpoint: server.URL + "/inference/"})
	out, err := c.Complete(context.Background(), port.CompletionRequest{Text: "x"})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}
