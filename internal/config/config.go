package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/bhnan/Long-text-evaluation/internal/doctree"
	"github.com/bhnan/Long-text-evaluation/internal/llm"
)

type Config struct {
	Port string `env:"PORT,default=8090"`

	// Auth for the HTTP API
	APIKey string `env:"LONGEVAL_API_KEY"`

	// Model provider
	LLMProvider     string        `env:"LLM_PROVIDER,default=openai"`
	LLMAPIKey       string        `env:"LLM_API_KEY"`
	LLMBaseURL      string        `env:"LLM_BASE_URL"`
	LLMModel        string        `env:"LLM_MODEL"`
	LLMSystemPrompt string        `env:"LLM_SYSTEM_PROMPT"`
	LLMMaxTokens    int64         `env:"LLM_MAX_TOKENS,default=2048"`
	LLMTimeout      time.Duration `env:"LLM_TIMEOUT,default=30s"`
	LLMMaxAttempts  int           `env:"LLM_MAX_ATTEMPTS,default=3"`

	// Shared quota
	RateLimitRPM int `env:"RATE_LIMIT_RPM,default=1000"`
	RateLimitTPM int `env:"RATE_LIMIT_TPM,default=20000"`

	// Storage
	CheckpointDir string `env:"CHECKPOINT_DIR,default=checkpoints"`
	ResultsDir    string `env:"RESULTS_DIR,default=evaluation_results"`
	ReportDir     string `env:"REPORT_DIR,default=result"`

	// Rubric
	RubricFile    string              `env:"RUBRIC_FILE"`
	ExpectedStyle string              `env:"EXPECTED_STYLE"`
	Granularity   doctree.Granularity `env:"GRANULARITY,default=section"`

	// Worker pool
	WorkerCount  int `env:"WORKER_COUNT,default=2"`
	MaxQueueSize int `env:"MAX_QUEUE_SIZE,default=100"`

	// Upload limits
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES,default=10485760"` // 10MB

	// Job state
	JobTTL time.Duration `env:"JOB_TTL,default=24h"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// Load reads an optional .env file, then the process environment.
func Load(ctx context.Context) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return process(ctx, envconfig.OsLookuper())
}

func process(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return Config{}, fmt.Errorf("process config: %w", err)
	}

	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = llm.DefaultTimeout
	}
	if cfg.LLMMaxAttempts <= 0 {
		cfg.LLMMaxAttempts = 3
	}
	if cfg.RateLimitRPM <= 0 {
		cfg.RateLimitRPM = 1000
	}
	if cfg.RateLimitTPM <= 0 {
		cfg.RateLimitTPM = 20000
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10485760
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 24 * time.Hour
	}
	return cfg, nil
}

// Validate checks settings every binary needs.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case "openai", "anthropic":
		if c.LLMAPIKey == "" {
			return fmt.Errorf("LLM_API_KEY is required for provider %q", c.LLMProvider)
		}
	case "mock":
	default:
		return fmt.Errorf("LLM_PROVIDER must be openai, anthropic or mock, got %q", c.LLMProvider)
	}
	if c.Granularity != doctree.BySection && c.Granularity != doctree.BySubsection {
		return fmt.Errorf("GRANULARITY must be section or subsection, got %q", c.Granularity)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// ValidateServer adds the checks only the HTTP service needs.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("LONGEVAL_API_KEY is required")
	}
	return nil
}

// LLMSettings maps the provider fields to client settings.
func (c Config) LLMSettings() llm.Settings {
	return llm.Settings{
		Provider:     c.LLMProvider,
		Model:        c.LLMModel,
		APIKey:       c.LLMAPIKey,
		BaseURL:      c.LLMBaseURL,
		SystemPrompt: c.LLMSystemPrompt,
		MaxTokens:    c.LLMMaxTokens,
		Timeout:      c.LLMTimeout,
	}
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}
