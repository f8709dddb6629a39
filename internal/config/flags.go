package config

import (
	"time"

	"github.com/spf13/pflag"
)

const flagConfig = "config"

// flagKeys maps each command-line flag to the configuration key it sets.
var flagKeys = map[string]string{
	"log-level":        "server.log_level",
	"log-format":       "server.log_format",
	"status-addr":      "server.status_addr",
	"base-url":         "llm.base_url",
	"model":            "llm.model_name",
	"prompt":           "llm.prompt_template_path",
	"workers":          "run.workers",
	"rpm":              "run.requests_per_minute",
	"max-attempts":     "run.max_attempts",
	"backoff-strategy": "run.backoff_strategy",
	"backoff":          "run.backoff_base",
	"backoff-max":      "run.backoff_max",
	"skip-processed":   "run.skip_processed",
	"input":            "input.path",
	"output-backend":   "output.backend",
	"output-dir":       "output.dir",
	"database-url":     "output.database_url",
	"failed-path":      "output.failed_path",
}

// RegisterFlags declares the command-line flags understood by Load on fs.
// Flags only override other sources when they are set explicitly.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(flagConfig, "", "path to a YAML config file (default ./cardgen.yaml if present)")

	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", "json", "log format: json or text")
	fs.String("status-addr", "", "serve GET /status and /healthz on this address, e.g. :8081")

	fs.String("base-url", "", "generation endpoint base URL override")
	fs.String("model", "", "generation model name")
	fs.String("prompt", "prompts/flashcard.tmpl", "prompt template file")

	fs.IntP("workers", "w", 1, "number of concurrent workers")
	fs.Int("rpm", 0, "maximum generation requests per minute across all workers (0 = unlimited)")
	fs.Int("max-attempts", 3, "generation attempts per word before it is reported as failed")
	fs.String("backoff-strategy", "linear", "delay growth between attempts: linear, constant, exponential")
	fs.Duration("backoff", 5*time.Second, "base delay between attempts")
	fs.Duration("backoff-max", 0, "cap on the delay between attempts (0 = uncapped)")
	fs.Bool("skip-processed", true, "skip words that already have an output artifact")

	fs.StringP("input", "i", "", "word list, one word per line")
	fs.String("output-backend", BackendFile, "artifact sink: file or postgres")
	fs.StringP("output-dir", "o", "cards", "directory for card files (file backend)")
	fs.String("database-url", "", "PostgreSQL connection string (postgres backend)")
	fs.String("failed-path", "", "write failed words to this file, one per line")
}
