package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notepipe/internal/config"
)

func validConfig() *config.Config {
	return &config.Config{
		Completion: config.CompletionConfig{Provider: "openai", APIKey: "ghp-test", Model: "openai/gpt-4.1"},
		Storage: config.StorageConfig{
			Provider:        "graph",
			SourceFolder:    "Handwritten Notes",
			DestFolder:      "vault/_scans",
			ProcessedFolder: "Handwritten Notes/processed",
		},
		Graph:    config.GraphConfig{ClientID: "client", RefreshToken: "refresh"},
		Pipeline: config.PipelineConfig{LinkStyle: "wiki", TitleMaxLength: 80},
		PDF:      config.PDFConfig{Renderer: "imagemagick", DPI: 200},
		Notify:   config.NotifyConfig{Provider: "noop"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "openai", cfg.Completion.Provider)
	assert.Equal(t, "openai/gpt-4.1", cfg.Completion.Model)
	assert.Equal(t, "https://models.github.ai/inference", cfg.Completion.Endpoint)
	assert.Equal(t, 120*time.Second, cfg.Completion.Timeout())
	assert.InDelta(t, 0.0, cfg.Completion.VisionTemperature, 1e-9)
	assert.InDelta(t, 0.3, cfg.Completion.TextTemperature, 1e-9)
	assert.Equal(t, "graph", cfg.Storage.Provider)
	assert.Equal(t, "Handwritten Notes", cfg.Storage.SourceFolder)
	assert.Equal(t, "Handwritten Notes/processed", cfg.Storage.ProcessedFolder)
	assert.Equal(t, 60*time.Second, cfg.Storage.Timeout())
	assert.Equal(t, "common", cfg.Graph.Tenant)
	assert.True(t, cfg.Pipeline.SkipAlreadyProcessed)
	assert.Equal(t, "wiki", cfg.Pipeline.LinkStyle)
	assert.Equal(t, 80, cfg.Pipeline.TitleMaxLength)
	assert.Equal(t, "imagemagick", cfg.PDF.Renderer)
	assert.Equal(t, 200, cfg.PDF.DPI)
	assert.Equal(t, "*/30 * * * *", cfg.Schedule.Cron)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "noop", cfg.Notify.Provider)
	assert.Empty(t, cfg.Notify.Recipients)
}

func TestLoad_PrefixedEnv(t *testing.T) {
	t.Setenv("NOTEPIPE_COMPLETION_PROVIDER", "claude")
	t.Setenv("NOTEPIPE_PIPELINE_MAX_FILES", "5")
	t.Setenv("NOTEPIPE_NOTIFY_RECIPIENTS", "a@example.com, b@example.com ,")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "claude", cfg.Completion.Provider)
	assert.Equal(t, 5, cfg.Pipeline.MaxFiles)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Notify.Recipients)
}

func TestLoad_LegacyEnvNames(t *testing.T) {
	t.Setenv("GH_TOKEN", "ghp-legacy")
	t.Setenv("GH_MODEL", "openai/gpt-4o")
	t.Setenv("ONEDRIVE_CLIENT_ID", "legacy-client")
	t.Setenv("ONEDRIVE_REFRESH_TOKEN", "legacy-refresh")
	t.Setenv("ONEDRIVE_SOURCE_FOLDER", "Inbox")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "ghp-legacy", cfg.Completion.APIKey)
	assert.Equal(t, "openai/gpt-4o", cfg.Completion.Model)
	assert.Equal(t, "legacy-client", cfg.Graph.ClientID)
	assert.Equal(t, "legacy-refresh", cfg.Graph.RefreshToken)
	assert.Equal(t, "Inbox", cfg.Storage.SourceFolder)
}

func TestLoad_PrefixedEnvWinsOverLegacy(t *testing.T) {
	t.Setenv("GH_TOKEN", "ghp-legacy")
	t.Setenv("NOTEPIPE_COMPLETION_API_KEY", "ghp-new")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "ghp-new", cfg.Completion.APIKey)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notepipe.yaml")
	content := "storage:\n  provider: s3\n  dest_folder: vault/scans\ns3:\n  bucket: notes\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "s3", cfg.Storage.Provider)
	assert.Equal(t, "vault/scans", cfg.Storage.DestFolder)
	assert.Equal(t, "notes", cfg.S3.Bucket)
	assert.Equal(t, "Handwritten Notes", cfg.Storage.SourceFolder)
}

func TestLoad_ConfigFileRecipientsList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notepipe.yaml")
	content := "notify:\n  provider: ses\n  from_address: bot@example.com\n  recipients:\n    - a@example.com\n    - b@example.com\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Notify.Recipients)
}

func TestLoad_ConfigFileRecipientsString(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notepipe.toml")
	content := "[notify]\nrecipients = \"a@example.com,b@example.com\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Notify.Recipients)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_PortFallback(t *testing.T) {
	t.Setenv("PORT", "9090")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_OllamaNeedsNoKey(t *testing.T) {
	cfg := validConfig()
	cfg.Completion = config.CompletionConfig{Provider: "ollama", Model: "llava"}

	assert.NoError(t, cfg.Validate())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"missing api key", func(c *config.Config) { c.Completion.APIKey = "" }, "completion.api_key"},
		{"unknown completion provider", func(c *config.Config) { c.Completion.Provider = "bard" }, "unknown completion provider"},
		{"missing graph token", func(c *config.Config) { c.Graph.RefreshToken = "" }, "graph.client_id"},
		{"s3 without bucket", func(c *config.Config) { c.Storage.Provider = "s3" }, "s3.bucket"},
		{"unknown link style", func(c *config.Config) { c.Pipeline.LinkStyle = "html" }, "link_style"},
		{"unknown pdf renderer", func(c *config.Config) { c.PDF.Renderer = "poppler" }, "pdf.renderer"},
		{"ses without recipients", func(c *config.Config) {
			c.Notify = config.NotifyConfig{Provider: "ses", FromAddress: "bot@example.com"}
		}, "notify.recipients"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
