package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Log        LogConfig
	Completion CompletionConfig
	Storage    StorageConfig
	Graph      GraphConfig
	S3         S3Config
	Pipeline   PipelineConfig
	PDF        PDFConfig
	Schedule   ScheduleConfig
	Server     ServerConfig
	Notify     NotifyConfig
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CompletionConfig holds settings for the LLM completion provider.
type CompletionConfig struct {
	Provider          string  `mapstructure:"provider"`
	APIKey            string  `mapstructure:"api_key"`
	Model             string  `mapstructure:"model"`
	Endpoint          string  `mapstructure:"endpoint"`
	TimeoutSecs       int     `mapstructure:"timeout_secs"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	VisionTemperature float64 `mapstructure:"vision_temperature"`
	TextTemperature   float64 `mapstructure:"text_temperature"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute"`
}

// Timeout returns the per-call completion timeout.
func (c *CompletionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// StorageConfig holds the remote folder layout used as the work queue.
type StorageConfig struct {
	Provider        string `mapstructure:"provider"`
	SourceFolder    string `mapstructure:"source_folder"`
	DestFolder      string `mapstructure:"dest_folder"`
	ProcessedFolder string `mapstructure:"processed_folder"`
	TimeoutSecs     int    `mapstructure:"timeout_secs"`
}

// Timeout returns the per-call storage timeout.
func (s *StorageConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// GraphConfig holds Microsoft Graph (OneDrive) OAuth settings.
type GraphConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	Tenant       string `mapstructure:"tenant"`
	BaseURL      string `mapstructure:"base_url"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// PipelineConfig holds per-run processing settings.
type PipelineConfig struct {
	SkipAlreadyProcessed bool   `mapstructure:"skip_already_processed"`
	MaxFiles             int    `mapstructure:"max_files"`
	LinkStyle            string `mapstructure:"link_style"`
	TitleMaxLength       int    `mapstructure:"title_max_length"`
}

// PDFConfig holds first-page rendering settings for PDF sources.
type PDFConfig struct {
	Renderer string `mapstructure:"renderer"`
	DPI      int    `mapstructure:"dpi"`
}

// ScheduleConfig holds watch mode scheduling.
type ScheduleConfig struct {
	Cron string `mapstructure:"cron"`
}

// ServerConfig holds status HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// NotifyConfig holds run summary delivery settings.
type NotifyConfig struct {
	Provider      string   `mapstructure:"provider"`
	Region        string   `mapstructure:"region"`
	FromAddress   string   `mapstructure:"from_address"`
	FromName      string   `mapstructure:"from_name"`
	Recipients    []string `mapstructure:"recipients"`
	OnlyOnFailure bool     `mapstructure:"only_on_failure"`
}

// envBindings maps nested keys to environment variables. The unprefixed names
// are kept so existing deployments of the note scanner keep working.
var envBindings = map[string][]string{
	"log.level":                       {"NOTEPIPE_LOG_LEVEL"},
	"log.format":                      {"NOTEPIPE_LOG_FORMAT"},
	"completion.provider":             {"NOTEPIPE_COMPLETION_PROVIDER"},
	"completion.api_key":              {"NOTEPIPE_COMPLETION_API_KEY", "GH_TOKEN"},
	"completion.model":                {"NOTEPIPE_COMPLETION_MODEL", "GH_MODEL"},
	"completion.endpoint":             {"NOTEPIPE_COMPLETION_ENDPOINT", "GH_MODELS_URL"},
	"completion.timeout_secs":         {"NOTEPIPE_COMPLETION_TIMEOUT_SECS"},
	"completion.max_tokens":           {"NOTEPIPE_COMPLETION_MAX_TOKENS"},
	"completion.vision_temperature":   {"NOTEPIPE_COMPLETION_VISION_TEMPERATURE"},
	"completion.text_temperature":     {"NOTEPIPE_COMPLETION_TEXT_TEMPERATURE"},
	"completion.requests_per_minute":  {"NOTEPIPE_COMPLETION_REQUESTS_PER_MINUTE"},
	"storage.provider":                {"NOTEPIPE_STORAGE_PROVIDER"},
	"storage.source_folder":           {"NOTEPIPE_STORAGE_SOURCE_FOLDER", "ONEDRIVE_SOURCE_FOLDER"},
	"storage.dest_folder":             {"NOTEPIPE_STORAGE_DEST_FOLDER", "ONEDRIVE_DEST_FOLDER"},
	"storage.processed_folder":        {"NOTEPIPE_STORAGE_PROCESSED_FOLDER", "ONEDRIVE_PROCESSED_FOLDER"},
	"storage.timeout_secs":            {"NOTEPIPE_STORAGE_TIMEOUT_SECS"},
	"graph.client_id":                 {"NOTEPIPE_GRAPH_CLIENT_ID", "ONEDRIVE_CLIENT_ID"},
	"graph.client_secret":             {"NOTEPIPE_GRAPH_CLIENT_SECRET", "ONEDRIVE_CLIENT_SECRET"},
	"graph.refresh_token":             {"NOTEPIPE_GRAPH_REFRESH_TOKEN", "ONEDRIVE_REFRESH_TOKEN"},
	"graph.tenant":                    {"NOTEPIPE_GRAPH_TENANT"},
	"graph.base_url":                  {"NOTEPIPE_GRAPH_BASE_URL"},
	"graph.redirect_url":              {"NOTEPIPE_GRAPH_REDIRECT_URL"},
	"s3.region":                       {"NOTEPIPE_S3_REGION"},
	"s3.bucket":                       {"NOTEPIPE_S3_BUCKET"},
	"s3.endpoint":                     {"NOTEPIPE_S3_ENDPOINT"},
	"s3.access_key":                   {"NOTEPIPE_S3_ACCESS_KEY"},
	"s3.secret_key":                   {"NOTEPIPE_S3_SECRET_KEY"},
	"pipeline.skip_already_processed": {"NOTEPIPE_PIPELINE_SKIP_ALREADY_PROCESSED"},
	"pipeline.max_files":              {"NOTEPIPE_PIPELINE_MAX_FILES"},
	"pipeline.link_style":             {"NOTEPIPE_PIPELINE_LINK_STYLE"},
	"pipeline.title_max_length":       {"NOTEPIPE_PIPELINE_TITLE_MAX_LENGTH"},
	"pdf.renderer":                    {"NOTEPIPE_PDF_RENDERER"},
	"pdf.dpi":                         {"NOTEPIPE_PDF_DPI"},
	"schedule.cron":                   {"NOTEPIPE_SCHEDULE_CRON"},
	"server.port":                     {"NOTEPIPE_SERVER_PORT"},
	"server.read_timeout":             {"NOTEPIPE_SERVER_READ_TIMEOUT"},
	"server.write_timeout":            {"NOTEPIPE_SERVER_WRITE_TIMEOUT"},
	"notify.provider":                 {"NOTEPIPE_NOTIFY_PROVIDER"},
	"notify.region":                   {"NOTEPIPE_NOTIFY_REGION"},
	"notify.from_address":             {"NOTEPIPE_NOTIFY_FROM_ADDRESS"},
	"notify.from_name":                {"NOTEPIPE_NOTIFY_FROM_NAME"},
	"notify.recipients":               {"NOTEPIPE_NOTIFY_RECIPIENTS"},
	"notify.only_on_failure":          {"NOTEPIPE_NOTIFY_ONLY_ON_FAILURE"},
}

// Load reads configuration from environment variables with the NOTEPIPE_ prefix
// and, when configFile is not empty, from that file.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NOTEPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Completion defaults (GitHub Models)
	v.SetDefault("completion.provider", "openai")
	v.SetDefault("completion.api_key", "")
	v.SetDefault("completion.model", "openai/gpt-4.1")
	v.SetDefault("completion.endpoint", "https://models.github.ai/inference")
	v.SetDefault("completion.timeout_secs", 120)
	v.SetDefault("completion.max_tokens", 4096)
	v.SetDefault("completion.vision_temperature", 0.0)
	v.SetDefault("completion.text_temperature", 0.3)
	v.SetDefault("completion.requests_per_minute", 0)

	// Storage defaults
	v.SetDefault("storage.provider", "graph")
	v.SetDefault("storage.source_folder", "Handwritten Notes")
	v.SetDefault("storage.dest_folder", "second-brain/second-brain/_scans")
	v.SetDefault("storage.processed_folder", "Handwritten Notes/processed")
	v.SetDefault("storage.timeout_secs", 60)

	// Graph defaults
	v.SetDefault("graph.client_id", "")
	v.SetDefault("graph.client_secret", "")
	v.SetDefault("graph.refresh_token", "")
	v.SetDefault("graph.tenant", "common")
	v.SetDefault("graph.base_url", "https://graph.microsoft.com/v1.0")
	v.SetDefault("graph.redirect_url", "http://localhost:8080")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")

	// Pipeline defaults
	v.SetDefault("pipeline.skip_already_processed", true)
	v.SetDefault("pipeline.max_files", 0)
	v.SetDefault("pipeline.link_style", "wiki")
	v.SetDefault("pipeline.title_max_length", 80)

	// PDF defaults
	v.SetDefault("pdf.renderer", "imagemagick")
	v.SetDefault("pdf.dpi", 200)

	// Watch mode defaults
	v.SetDefault("schedule.cron", "*/30 * * * *")
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	// Notify defaults
	v.SetDefault("notify.provider", "noop")
	v.SetDefault("notify.region", "us-east-1")
	v.SetDefault("notify.from_address", "")
	v.SetDefault("notify.from_name", "notepipe")
	v.SetDefault("notify.recipients", []string{})
	v.SetDefault("notify.only_on_failure", true)

	for key, envs := range envBindings {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{}

	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Completion = CompletionConfig{
		Provider:          v.GetString("completion.provider"),
		APIKey:            v.GetString("completion.api_key"),
		Model:             v.GetString("completion.model"),
		Endpoint:          v.GetString("completion.endpoint"),
		TimeoutSecs:       v.GetInt("completion.timeout_secs"),
		MaxTokens:         v.GetInt("completion.max_tokens"),
		VisionTemperature: v.GetFloat64("completion.vision_temperature"),
		TextTemperature:   v.GetFloat64("completion.text_temperature"),
		RequestsPerMinute: v.GetInt("completion.requests_per_minute"),
	}
	cfg.Storage = StorageConfig{
		Provider:        v.GetString("storage.provider"),
		SourceFolder:    v.GetString("storage.source_folder"),
		DestFolder:      v.GetString("storage.dest_folder"),
		ProcessedFolder: v.GetString("storage.processed_folder"),
		TimeoutSecs:     v.GetInt("storage.timeout_secs"),
	}
	cfg.Graph = GraphConfig{
		ClientID:     v.GetString("graph.client_id"),
		ClientSecret: v.GetString("graph.client_secret"),
		RefreshToken: v.GetString("graph.refresh_token"),
		Tenant:       v.GetString("graph.tenant"),
		BaseURL:      v.GetString("graph.base_url"),
		RedirectURL:  v.GetString("graph.redirect_url"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}
	cfg.Pipeline = PipelineConfig{
		SkipAlreadyProcessed: v.GetBool("pipeline.skip_already_processed"),
		MaxFiles:             v.GetInt("pipeline.max_files"),
		LinkStyle:            v.GetString("pipeline.link_style"),
		TitleMaxLength:       v.GetInt("pipeline.title_max_length"),
	}
	cfg.PDF = PDFConfig{
		Renderer: v.GetString("pdf.renderer"),
		DPI:      v.GetInt("pdf.dpi"),
	}
	cfg.Schedule = ScheduleConfig{
		Cron: v.GetString("schedule.cron"),
	}

	// Container platforms set a PORT env var. Use it if NOTEPIPE_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("NOTEPIPE_SERVER_PORT") == "" {
		serverPort = ":" + port
	}
	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
	}
	cfg.Notify = NotifyConfig{
		Provider:      v.GetString("notify.provider"),
		Region:        v.GetString("notify.region"),
		FromAddress:   v.GetString("notify.from_address"),
		FromName:      v.GetString("notify.from_name"),
		Recipients:    stringList(v, "notify.recipients"),
		OnlyOnFailure: v.GetBool("notify.only_on_failure"),
	}

	return cfg, nil
}

// Validate checks that the selected providers have the credentials they need.
func (c *Config) Validate() error {
	var errs []error

	switch c.Completion.Provider {
	case "openai", "claude", "gemini":
		if c.Completion.APIKey == "" {
			errs = append(errs, fmt.Errorf("completion.api_key is required for provider %q", c.Completion.Provider))
		}
	case "ollama":
	default:
		errs = append(errs, fmt.Errorf("unknown completion provider: %s", c.Completion.Provider))
	}
	if c.Completion.Model == "" {
		errs = append(errs, errors.New("completion.model is required"))
	}

	switch c.Storage.Provider {
	case "graph":
		if c.Graph.ClientID == "" || c.Graph.RefreshToken == "" {
			errs = append(errs, errors.New("graph.client_id and graph.refresh_token are required for the graph storage provider"))
		}
	case "s3":
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("s3.bucket is required for the s3 storage provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage provider: %s", c.Storage.Provider))
	}
	if c.Storage.SourceFolder == "" || c.Storage.DestFolder == "" || c.Storage.ProcessedFolder == "" {
		errs = append(errs, errors.New("storage source, destination and processed folders must be set"))
	}

	switch c.Pipeline.LinkStyle {
	case "wiki", "markdown":
	default:
		errs = append(errs, fmt.Errorf("unknown pipeline.link_style: %s", c.Pipeline.LinkStyle))
	}
	if c.Pipeline.TitleMaxLength <= 0 {
		errs = append(errs, errors.New("pipeline.title_max_length must be positive"))
	}

	switch c.PDF.Renderer {
	case "imagemagick", "embedded":
	default:
		errs = append(errs, fmt.Errorf("unknown pdf.renderer: %s", c.PDF.Renderer))
	}

	switch c.Notify.Provider {
	case "noop":
	case "ses":
		if c.Notify.FromAddress == "" || len(c.Notify.Recipients) == 0 {
			errs = append(errs, errors.New("notify.from_address and notify.recipients are required for the ses notifier"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown notify provider: %s", c.Notify.Provider))
	}

	return errors.Join(errs...)
}

// stringList reads key as a list from a config file, or as a comma separated
// string from the environment.
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		out = append(out, splitList(item)...)
	}
	return out
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
