package completion_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notepipe/internal/completion"
	"notepipe/internal/config"
	"notepipe/internal/port"
)

func TestFactory_RegisterAndCreate(t *testing.T) {
	completion.RegisterProvider("test-provider", func(cfg *config.CompletionConfig) (port.Completer, error) {
		return &stubCompleter{model: cfg.Model}, nil
	})

	c, err := completion.NewCompleter(&config.CompletionConfig{
		Provider:          "test-provider",
		Model:             "test-model",
		TimeoutSecs:       5,
		RequestsPerMinute: 600,
	})

	require.NoError(t, err)
	assert.Equal(t, "test-model", c.Model())

	out, err := c.Complete(context.Background(), port.CompletionRequest{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "stub: hi", out)
}

func TestFactory_UnknownProvider(t *testing.T) {
	c, err := completion.NewCompleter(&config.CompletionConfig{Provider: "nonexistent-provider-xyz"})

	assert.Nil(t, c)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown completion provider")
}

// stubCompleter is a minimal Completer for testing the factory and wrappers.
type stubCompleter struct {
	model string
	calls int
}

func (s *stubCompleter) Complete(ctx context.Context, req port.CompletionRequest) (string, error) {
	s.calls++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "stub: " + req.Text, nil
}

func (s *stubCompleter) Model() string {
	return s.model
}
