package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultExternalHTTPTimeoutSeconds = 90
	defaultRequestTimeoutSeconds      = 60
	defaultBatchSize                  = 10
	defaultRetryBaseDelayMS           = 500
)

type Config struct {
	LLMProvider                string `yaml:"llm_provider"`
	LLMModel                   string `yaml:"llm_model"`
	LLMBatchSize               int    `yaml:"llm_batch_size"`
	LLMStrategy                string `yaml:"llm_strategy"`
	LLMRequestTimeoutSeconds   int    `yaml:"llm_request_timeout_seconds"`
	LLMRetryMaxAttempts        int    `yaml:"llm_retry_max_attempts"`
	LLMRetryBaseDelayMS        int    `yaml:"llm_retry_base_delay_ms"`
	AnthropicAPIKey            string `yaml:"anthropic_api_key"`
	OpenAIAPIKey               string `yaml:"openai_api_key"`
	OpenAIBaseURL              string `yaml:"openai_base_url"`
	ExternalHTTPTimeoutSeconds int    `yaml:"external_http_timeout_seconds"`

	TextColumn     string `yaml:"text_column"`
	DateColumn     string `yaml:"date_column"`
	NgramThreshold int    `yaml:"ngram_threshold"`
	StopwordsPath  string `yaml:"stopwords_path"`
	Timezone       string `yaml:"timezone"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackAppToken  string `yaml:"slack_app_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	WatchFile     string `yaml:"watch_file"`
	WatchSchedule string `yaml:"watch_schedule"`
	ExportDir     string `yaml:"export_dir"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

// LoadConfig reads config.yaml (or CONFIG_PATH), applies environment overrides and
// defaults, and exits on invalid configuration.
func LoadConfig() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// Load is LoadConfig without the exit. A .env file (or DOTENV_PATH) is loaded into
// the environment first when present; variables already set win.
func Load() (Config, error) {
	var cfg Config

	dotenvPath := ".env"
	if p := os.Getenv("DOTENV_PATH"); p != "" {
		dotenvPath = p
	}
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("loading %s: %w", dotenvPath, err)
	}

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", configPath, err)
		}
	}

	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.LLMStrategy, "LLM_STRATEGY")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.OpenAIBaseURL, "OPENAI_BASE_URL")
	envOverride(&cfg.TextColumn, "TEXT_COLUMN")
	envOverride(&cfg.DateColumn, "DATE_COLUMN")
	envOverride(&cfg.StopwordsPath, "STOPWORDS_PATH")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverride(&cfg.LogLevel, "LOG_LEVEL")
	envOverride(&cfg.LogFormat, "LOG_FORMAT")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.WatchFile, "WATCH_FILE")
	envOverride(&cfg.WatchSchedule, "WATCH_SCHEDULE")
	envOverride(&cfg.ExportDir, "EXPORT_DIR")

	var errs []error
	errs = append(errs,
		envOverrideInt(&cfg.LLMBatchSize, "LLM_BATCH_SIZE"),
		envOverrideInt(&cfg.LLMRequestTimeoutSeconds, "LLM_REQUEST_TIMEOUT_SECONDS"),
		envOverrideInt(&cfg.LLMRetryMaxAttempts, "LLM_RETRY_MAX_ATTEMPTS"),
		envOverrideInt(&cfg.LLMRetryBaseDelayMS, "LLM_RETRY_BASE_DELAY_MS"),
		envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS"),
		envOverrideInt(&cfg.NgramThreshold, "NGRAM_THRESHOLD"),
	)
	if err := errors.Join(errs...); err != nil {
		return cfg, err
	}

	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	if cfg.LLMBatchSize == 0 {
		cfg.LLMBatchSize = defaultBatchSize
	}
	if cfg.LLMStrategy == "" {
		cfg.LLMStrategy = "batch"
	}
	if cfg.LLMRequestTimeoutSeconds == 0 {
		cfg.LLMRequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
	if cfg.LLMRetryMaxAttempts == 0 {
		cfg.LLMRetryMaxAttempts = 1
	}
	if cfg.LLMRetryBaseDelayMS == 0 {
		cfg.LLMRetryBaseDelayMS = defaultRetryBaseDelayMS
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.NgramThreshold == 0 {
		cfg.NgramThreshold = 1
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.WatchSchedule == "" {
		cfg.WatchSchedule = "0 * * * *"
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "./exports"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges and resolves Location.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return errors.New("anthropic_api_key is required when llm_provider=anthropic")
		}
	case "openai":
		if c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
			return errors.New("openai_api_key is required when llm_provider=openai")
		}
	default:
		return fmt.Errorf("llm_provider must be 'anthropic' or 'openai', got '%s'", c.LLMProvider)
	}

	switch strings.ToLower(c.LLMStrategy) {
	case "batch", "per_item":
	default:
		return fmt.Errorf("llm_strategy must be 'batch' or 'per_item', got '%s'", c.LLMStrategy)
	}
	if c.LLMBatchSize < 1 {
		return fmt.Errorf("invalid llm_batch_size '%d': must be >= 1", c.LLMBatchSize)
	}
	if c.LLMRequestTimeoutSeconds < 1 {
		return fmt.Errorf("invalid llm_request_timeout_seconds '%d': must be >= 1", c.LLMRequestTimeoutSeconds)
	}
	if c.LLMRetryMaxAttempts < 1 {
		return fmt.Errorf("invalid llm_retry_max_attempts '%d': must be >= 1", c.LLMRetryMaxAttempts)
	}
	if c.LLMRetryBaseDelayMS < 1 {
		return fmt.Errorf("invalid llm_retry_base_delay_ms '%d': must be >= 1", c.LLMRetryBaseDelayMS)
	}
	if c.ExternalHTTPTimeoutSeconds < 5 {
		return fmt.Errorf("invalid external_http_timeout_seconds '%d': must be >= 5", c.ExternalHTTPTimeoutSeconds)
	}
	if c.NgramThreshold < 1 {
		return fmt.Errorf("invalid ngram_threshold '%d': must be >= 1", c.NgramThreshold)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be 'text' or 'json', got '%s'", c.LogFormat)
	}

	if strings.EqualFold(c.Timezone, "Local") {
		c.Location = time.Local
	} else {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
		}
		c.Location = loc
	}
	return nil
}

// SlackConfigured reports whether both Slack tokens are set.
func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackAppToken != ""
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.LLMRequestTimeoutSeconds) * time.Second
}

func (c Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.LLMRetryBaseDelayMS) * time.Millisecond
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}
