package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads so the host environment cannot
// leak into a test. t.Setenv restores the previous values afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SCRY_CONFIG", "")
	for _, b := range envBindings {
		for _, name := range b.envs {
			t.Setenv(name, "")
			require.NoError(t, os.Unsetenv(name))
		}
	}
	require.NoError(t, os.Unsetenv("SCRY_CONFIG"))
}

// setupEnv sets the minimal required settings plus the given overrides.
func setupEnv(t *testing.T, envVars map[string]string) {
	t.Helper()
	clearEnv(t)

	base := map[string]string{
		"SCRY_LLM_GEMINI_API_KEY": "test-api-key",
		"SCRY_LLM_MODEL_NAME":     "gemini-2.0-flash",
		"SCRY_INPUT_PATH":         "words.txt",
	}
	for k, v := range envVars {
		base[k] = v
	}
	for k, v := range base {
		if v == "" {
			continue
		}
		t.Setenv(k, v)
	}
}

// TestLoadDefaults verifies the defaults applied when only required values are set.
func TestLoadDefaults(t *testing.T) {
	setupEnv(t, nil)
	t.Chdir(t.TempDir())

	cfg, err := Load(nil)
	require.NoError(t, err, "Load() should not return an error with default values")
	require.NotNil(t, cfg)

	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "json", cfg.Server.LogFormat)
	assert.Equal(t, 1, cfg.Run.Workers, "default worker count should be 1")
	assert.Equal(t, 0, cfg.Run.RequestsPerMinute, "default rate should be unlimited")
	assert.Equal(t, 3, cfg.Run.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Run.BackoffBase)
	assert.Equal(t, "linear", cfg.Run.BackoffStrategy)
	assert.True(t, cfg.Run.SkipProcessed, "skip_processed should default to true")
	assert.Equal(t, BackendFile, cfg.Output.Backend)
	assert.Equal(t, "cards", cfg.Output.Dir)
	assert.Equal(t, ".txt", cfg.Output.Extension)
	assert.Equal(t, "prompts/flashcard.tmpl", cfg.LLM.PromptTemplatePath)
}

// TestLoadFromEnv verifies that prefixed environment variables are read.
func TestLoadFromEnv(t *testing.T) {
	setupEnv(t, map[string]string{
		"SCRY_SERVER_LOG_LEVEL":        "debug",
		"SCRY_LLM_BASE_URL":            "https://proxy.example.com",
		"SCRY_RUN_WORKERS":             "4",
		"SCRY_RUN_REQUESTS_PER_MINUTE": "30",
		"SCRY_RUN_BACKOFF_BASE":        "250ms",
		"SCRY_RUN_SKIP_PROCESSED":      "false",
	})
	t.Chdir(t.TempDir())

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "test-api-key", cfg.LLM.GeminiAPIKey)
	assert.Equal(t, "https://proxy.example.com", cfg.LLM.BaseURL)
	assert.Equal(t, 4, cfg.Run.Workers)
	assert.Equal(t, 30, cfg.Run.RequestsPerMinute)
	assert.Equal(t, 250*time.Millisecond, cfg.Run.BackoffBase)
	assert.False(t, cfg.Run.SkipProcessed)
}

// TestLoadLegacyEnv verifies the unprefixed variable names still work.
func TestLoadLegacyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "legacy-key")
	t.Setenv("API_BASE_URL", "https://legacy.example.com")
	t.Setenv("MODEL_NAME", "legacy-model")
	t.Setenv("INPUT_FILE", "legacy.txt")
	t.Setenv("WORKERS", "3")
	t.Setenv("RPM", "20")
	t.Setenv("SKIP_PROCESSED", "f")
	t.Chdir(t.TempDir())

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "legacy-key", cfg.LLM.GeminiAPIKey)
	assert.Equal(t, "https://legacy.example.com", cfg.LLM.BaseURL)
	assert.Equal(t, "legacy-model", cfg.LLM.ModelName)
	assert.Equal(t, "legacy.txt", cfg.Input.Path)
	assert.Equal(t, 3, cfg.Run.Workers)
	assert.Equal(t, 20, cfg.Run.RequestsPerMinute)
	assert.False(t, cfg.Run.SkipProcessed)
}

// TestLoadPrefixedEnvWins verifies the prefixed name takes precedence.
func TestLoadPrefixedEnvWins(t *testing.T) {
	setupEnv(t, map[string]string{"WORKERS": "2", "SCRY_RUN_WORKERS": "6"})
	t.Chdir(t.TempDir())

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Run.Workers)
}

// TestLoadFromFileAndFlags verifies file values and flag precedence.
func TestLoadFromFileAndFlags(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "custom.yaml")
	content := `
llm:
  gemini_api_key: file-key
  model_name: file-model
run:
  workers: 2
  requests_per_minute: 10
input:
  path: from-file.txt
output:
  dir: out
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", path, "--workers", "8", "--skip-processed=false"}))

	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.LLM.GeminiAPIKey)
	assert.Equal(t, "file-model", cfg.LLM.ModelName)
	assert.Equal(t, 8, cfg.Run.Workers, "explicit flag should override the file")
	assert.Equal(t, 10, cfg.Run.RequestsPerMinute, "unset flag should not override the file")
	assert.Equal(t, "from-file.txt", cfg.Input.Path)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.False(t, cfg.Run.SkipProcessed)
}

// TestLoadDefaultConfigFile verifies ./cardgen.yaml is picked up.
func TestLoadDefaultConfigFile(t *testing.T) {
	setupEnv(t, nil)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cardgen.yaml"), []byte("run:\n  max_attempts: 5\n"), 0o644))

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Run.MaxAttempts)
}

// TestLoadMissingExplicitFile verifies an explicit but missing file is fatal.
func TestLoadMissingExplicitFile(t *testing.T) {
	setupEnv(t, map[string]string{"SCRY_CONFIG": "/nonexistent/cardgen.yaml"})
	t.Chdir(t.TempDir())

	cfg, err := Load(nil)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// TestLoadValidationErrors verifies that the Load function correctly validates the configuration.
func TestLoadValidationErrors(t *testing.T) {
	testCases := []struct {
		name           string
		envVars        map[string]string
		errorSubstring string
	}{
		{
			name:           "missing_api_key",
			envVars:        map[string]string{"SCRY_LLM_GEMINI_API_KEY": ""},
			errorSubstring: "llm.gemini_api_key failed required",
		},
		{
			name:           "missing_input_path",
			envVars:        map[string]string{"SCRY_INPUT_PATH": ""},
			errorSubstring: "input.path failed required",
		},
		{
			name:           "zero_workers",
			envVars:        map[string]string{"SCRY_RUN_WORKERS": "0"},
			errorSubstring: "run.workers failed gte=1",
		},
		{
			name:           "negative_rpm",
			envVars:        map[string]string{"SCRY_RUN_REQUESTS_PER_MINUTE": "-1"},
			errorSubstring: "run.requests_per_minute failed gte=0",
		},
		{
			name:           "zero_attempts",
			envVars:        map[string]string{"SCRY_RUN_MAX_ATTEMPTS": "0"},
			errorSubstring: "run.max_attempts failed gte=1",
		},
		{
			name:           "invalid_log_level",
			envVars:        map[string]string{"SCRY_SERVER_LOG_LEVEL": "invalid-level"},
			errorSubstring: "server.log_level failed oneof",
		},
		{
			name:           "invalid_backend",
			envVars:        map[string]string{"SCRY_OUTPUT_BACKEND": "s3"},
			errorSubstring: "output.backend failed oneof",
		},
		{
			name:           "postgres_without_url",
			envVars:        map[string]string{"SCRY_OUTPUT_BACKEND": "postgres"},
			errorSubstring: "output.database_url failed required_if",
		},
		{
			name:           "invalid_status_addr",
			envVars:        map[string]string{"SCRY_SERVER_STATUS_ADDR": "not an address"},
			errorSubstring: "server.status_addr failed hostname_port",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setupEnv(t, tc.envVars)
			t.Chdir(t.TempDir())

			cfg, err := Load(nil)

			require.Error(t, err, "Load() should return an error with invalid configuration")
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), "validation failed")
			assert.Contains(t, err.Error(), tc.errorSubstring)
			assert.Nil(t, cfg, "Config should be nil when an error occurs")
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("MODEL_NAME=from-dotenv\nWORKERS=9\n"), 0o644))

	t.Setenv("WORKERS", "2")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv("MODEL_NAME"))
	assert.Equal(t, "2", os.Getenv("WORKERS"), ".env must not override variables already set")
	require.NoError(t, os.Unsetenv("MODEL_NAME"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")), "missing file is not an error")
}
