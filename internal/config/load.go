package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// ErrInvalidConfig is returned when configuration cannot be read or fails
// validation. It is fatal: no work starts with an invalid configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "SCRY"

// envBinding maps a configuration key to the environment variables that may
// set it. The first variable that is set wins; the unprefixed names are the
// ones used by earlier versions of the tool.
type envBinding struct {
	key  string
	envs []string
}

var envBindings = []envBinding{
	{"server.log_level", []string{"SCRY_SERVER_LOG_LEVEL"}},
	{"server.log_format", []string{"SCRY_SERVER_LOG_FORMAT"}},
	{"server.status_addr", []string{"SCRY_SERVER_STATUS_ADDR"}},
	{"llm.gemini_api_key", []string{"SCRY_LLM_GEMINI_API_KEY", "API_KEY"}},
	{"llm.base_url", []string{"SCRY_LLM_BASE_URL", "API_BASE_URL"}},
	{"llm.model_name", []string{"SCRY_LLM_MODEL_NAME", "MODEL_NAME"}},
	{"llm.prompt_template_path", []string{"SCRY_LLM_PROMPT_TEMPLATE_PATH"}},
	{"llm.temperature", []string{"SCRY_LLM_TEMPERATURE"}},
	{"llm.max_output_tokens", []string{"SCRY_LLM_MAX_OUTPUT_TOKENS"}},
	{"run.workers", []string{"SCRY_RUN_WORKERS", "WORKERS"}},
	{"run.requests_per_minute", []string{"SCRY_RUN_REQUESTS_PER_MINUTE", "RPM"}},
	{"run.max_attempts", []string{"SCRY_RUN_MAX_ATTEMPTS"}},
	{"run.backoff_strategy", []string{"SCRY_RUN_BACKOFF_STRATEGY"}},
	{"run.backoff_base", []string{"SCRY_RUN_BACKOFF_BASE"}},
	{"run.backoff_max", []string{"SCRY_RUN_BACKOFF_MAX"}},
	{"run.skip_processed", []string{"SCRY_RUN_SKIP_PROCESSED", "SKIP_PROCESSED"}},
	{"input.path", []string{"SCRY_INPUT_PATH", "INPUT_FILE"}},
	{"output.backend", []string{"SCRY_OUTPUT_BACKEND"}},
	{"output.dir", []string{"SCRY_OUTPUT_DIR"}},
	{"output.extension", []string{"SCRY_OUTPUT_EXTENSION"}},
	{"output.database_url", []string{"SCRY_OUTPUT_DATABASE_URL", "DATABASE_URL"}},
	{"output.failed_path", []string{"SCRY_OUTPUT_FAILED_PATH"}},
}

// setDefaults registers the default value of every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.status_addr", "")

	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.prompt_template_path", "prompts/flashcard.tmpl")
	v.SetDefault("llm.temperature", 1.3)
	v.SetDefault("llm.max_output_tokens", 8192)

	v.SetDefault("run.workers", 1)
	v.SetDefault("run.requests_per_minute", 0)
	v.SetDefault("run.max_attempts", 3)
	v.SetDefault("run.backoff_strategy", "linear")
	v.SetDefault("run.backoff_base", 5*time.Second)
	v.SetDefault("run.backoff_max", time.Duration(0))
	v.SetDefault("run.skip_processed", true)

	v.SetDefault("output.backend", BackendFile)
	v.SetDefault("output.dir", "cards")
	v.SetDefault("output.extension", ".txt")
	v.SetDefault("output.database_url", "")
	v.SetDefault("output.failed_path", "")
}

// LoadDotEnv reads KEY=value pairs from the given files (default ".env") into
// the process environment. Variables that are already set are left alone and
// missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := gotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: failed to load %s: %v", ErrInvalidConfig, p, err)
		}
	}
	return nil
}

// Load builds the configuration from, in increasing precedence: defaults,
// an optional YAML file, environment variables, and the flags registered by
// RegisterFlags on fs (only those explicitly set). fs may be nil.
// Returns a populated Config or an error wrapping ErrInvalidConfig.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, b := range envBindings {
		args := append([]string{b.key}, b.envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("%w: error binding environment variable %s: %v", ErrInvalidConfig, b.envs[0], err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("%w: error binding flag --%s: %v", ErrInvalidConfig, name, err)
			}
		}
	}

	if err := readConfigFile(v, fs); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal configuration: %v", ErrInvalidConfig, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// readConfigFile reads the YAML file named by --config or SCRY_CONFIG. Without
// an explicit file it looks for cardgen.yaml in the working directory and
// silently continues when there is none.
func readConfigFile(v *viper.Viper, fs *pflag.FlagSet) error {
	path := v.GetString("config")
	if fs != nil {
		if f := fs.Lookup(flagConfig); f != nil && f.Changed {
			path = f.Value.String()
		}
	}

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("%w: error reading config file %s: %v", ErrInvalidConfig, path, err)
		}
		return nil
	}

	v.SetConfigName("cardgen")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("%w: error reading config file: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// validate is shared; validator.Validate caches struct metadata and is safe
// for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their configuration key rather than the Go field name.
	val.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return val
}

// Validate checks cfg against its struct tags. Failures wrap ErrInvalidConfig
// and name the offending keys.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: validation failed: %v", ErrInvalidConfig, err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			problems = append(problems, fmt.Sprintf("%s failed %s=%s", key, fe.Tag(), fe.Param()))
		} else {
			problems = append(problems, fmt.Sprintf("%s failed %s", key, fe.Tag()))
		}
	}
	return fmt.Errorf("%w: validation failed: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}
