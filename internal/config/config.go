package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/tatianab/text-quest/internal/engine"
	"github.com/tatianab/text-quest/internal/llm"
	"github.com/tatianab/text-quest/internal/logger"
)

const (
	SaveBackendFile  = "file"
	SaveBackendRedis = "redis"
)

// Config holds the application configuration.
type Config struct {
	AIProvider        string        `envconfig:"AI_PROVIDER" default:"openrouter"`
	AIAPIKey          string        `envconfig:"AI_API_KEY"`
	AIBaseURL         string        `envconfig:"AI_BASE_URL"`
	AIModel           string        `envconfig:"AI_MODEL"`
	AITemperature     float64       `envconfig:"AI_TEMPERATURE" default:"0.5"`
	AIMaxTokens       int           `envconfig:"AI_MAX_TOKENS" default:"1500"`
	AITimeout         time.Duration `envconfig:"AI_TIMEOUT" default:"90s"`
	AIMaxRetries      int           `envconfig:"AI_MAX_RETRIES" default:"3"`
	AIRetryDelay      time.Duration `envconfig:"AI_RETRY_DELAY" default:"2s"`
	AIRetryMultiplier float64       `envconfig:"AI_RETRY_MULTIPLIER" default:"1.0"`
	AIMaxRetryDelay   time.Duration `envconfig:"AI_MAX_RETRY_DELAY" default:"30s"`

	PromptsDir string `envconfig:"PROMPTS_DIR"`

	SaveBackend string `envconfig:"SAVE_BACKEND" default:"file"`
	SaveDir     string `envconfig:"SAVE_DIR" default:"saves"`
	RedisURL    string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
	LogFile     string `envconfig:"LOG_FILE" default:"text-quest.log"`

	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

// LoadConfig loads the configuration from environment variables. Values in
// envFile, when it exists, fill in variables that are not already set. A
// missing API key is not an error here: the game reports it when a scene
// is requested.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("load %s: %w", envFile, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env vars: %w", err)
	}
	cfg.AIProvider = strings.ToLower(strings.TrimSpace(cfg.AIProvider))
	cfg.SaveBackend = strings.ToLower(strings.TrimSpace(cfg.SaveBackend))
	if cfg.AIModel == "" {
		cfg.AIModel = llm.DefaultModel(cfg.AIProvider)
	}

	if cfg.AIAPIKey == "" {
		switch cfg.AIProvider {
		case llm.ProviderGemini:
			cfg.AIAPIKey = os.Getenv("GEMINI_API_KEY")
		case llm.ProviderOpenRouter, "openai":
			cfg.AIAPIKey = os.Getenv("OPENROUTER_API_KEY")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.AIProvider {
	case llm.ProviderOpenRouter, "openai", llm.ProviderGemini, llm.ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("AI_PROVIDER: unknown provider %q", c.AIProvider))
	}
	if c.AITemperature < 0 || c.AITemperature > 2 {
		errs = append(errs, fmt.Errorf("AI_TEMPERATURE: %v is outside [0, 2]", c.AITemperature))
	}
	if c.AIMaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("AI_MAX_TOKENS: must be positive, got %d", c.AIMaxTokens))
	}
	if c.AIMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("AI_MAX_RETRIES: must not be negative, got %d", c.AIMaxRetries))
	}
	if c.AIRetryDelay < 0 || c.AIMaxRetryDelay < 0 {
		errs = append(errs, errors.New("AI_RETRY_DELAY and AI_MAX_RETRY_DELAY must not be negative"))
	}
	switch c.SaveBackend {
	case SaveBackendFile, SaveBackendRedis:
	default:
		errs = append(errs, fmt.Errorf("SAVE_BACKEND: unknown backend %q", c.SaveBackend))
	}
	return errors.Join(errs...)
}

func (c *Config) LLM() llm.Config {
	return llm.Config{
		Provider: c.AIProvider,
		APIKey:   c.AIAPIKey,
		BaseURL:  c.AIBaseURL,
		Timeout:  c.AITimeout,
	}
}

// Engine builds the session settings, reading prompt overrides from
// PromptsDir.
func (c *Config) Engine() (engine.Settings, error) {
	prompts, err := engine.LoadPrompts(c.PromptsDir)
	if err != nil {
		return engine.Settings{}, err
	}
	return engine.Settings{
		Model:       c.AIModel,
		Temperature: c.AITemperature,
		MaxTokens:   c.AIMaxTokens,
		Retry: engine.RetryConfig{
			MaxRetries: c.AIMaxRetries,
			Delay:      c.AIRetryDelay,
			Multiplier: c.AIRetryMultiplier,
			MaxDelay:   c.AIMaxRetryDelay,
		},
		Prompts: prompts,
	}, nil
}

// Logger returns the logger settings with output sent to path.
func (c *Config) Logger(path string) logger.Config {
	return logger.Config{
		Level:      c.LogLevel,
		Encoding:   c.LogEncoding,
		OutputPath: path,
	}
}
