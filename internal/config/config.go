package config

import (
	"log/slog"
	"time"
)

// Output backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server ServerConfig `mapstructure:"server" validate:"required"`
	LLM    LLMConfig    `mapstructure:"llm" validate:"required"`
	Run    RunConfig    `mapstructure:"run" validate:"required"`
	Input  InputConfig  `mapstructure:"input" validate:"required"`
	Output OutputConfig `mapstructure:"output" validate:"required"`
}

// ServerConfig contains process-level settings: logging and the optional
// status endpoint.
type ServerConfig struct {
	LogLevel  string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"required,oneof=json text"`
	// StatusAddr enables the HTTP status endpoint when non-empty (e.g. ":8081").
	StatusAddr string `mapstructure:"status_addr" validate:"omitempty,hostname_port"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	// BaseURL overrides the generation endpoint, e.g. for a proxy.
	BaseURL            string  `mapstructure:"base_url" validate:"omitempty,url"`
	ModelName          string  `mapstructure:"model_name" validate:"required"`
	PromptTemplatePath string  `mapstructure:"prompt_template_path" validate:"required"`
	Temperature        float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxOutputTokens    int     `mapstructure:"max_output_tokens" validate:"gte=0"`
}

// LogValue keeps the API key out of structured logs.
func (c LLMConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("api_key_present", c.GeminiAPIKey != ""),
		slog.String("base_url", c.BaseURL),
		slog.String("model_name", c.ModelName),
		slog.String("prompt_template_path", c.PromptTemplatePath),
		slog.Float64("temperature", c.Temperature),
		slog.Int("max_output_tokens", c.MaxOutputTokens),
	)
}

// RunConfig contains the settings of the dispatcher: pool size, rate cap,
// retry policy and the skip-already-processed flag.
type RunConfig struct {
	Workers int `mapstructure:"workers" validate:"gte=1"`
	// RequestsPerMinute caps generation calls across all workers; 0 is unlimited.
	RequestsPerMinute int           `mapstructure:"requests_per_minute" validate:"gte=0"`
	MaxAttempts       int           `mapstructure:"max_attempts" validate:"gte=1"`
	BackoffStrategy   string        `mapstructure:"backoff_strategy" validate:"oneof=linear constant exponential"`
	BackoffBase       time.Duration `mapstructure:"backoff_base" validate:"gte=0"`
	BackoffMax        time.Duration `mapstructure:"backoff_max" validate:"gte=0"`
	SkipProcessed     bool          `mapstructure:"skip_processed"`
}

// InputConfig locates the word list.
type InputConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// OutputConfig selects and configures the artifact sink.
type OutputConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=file postgres"`
	// Dir holds one <word><Extension> file per card for the file backend.
	Dir       string `mapstructure:"dir" validate:"required_if=Backend file"`
	Extension string `mapstructure:"extension" validate:"required_if=Backend file"`
	// DatabaseURL is the connection string for the postgres backend.
	DatabaseURL string `mapstructure:"database_url" validate:"required_if=Backend postgres"`
	// FailedPath receives the failed identifiers, one per line, when set.
	FailedPath string `mapstructure:"failed_path"`
}
