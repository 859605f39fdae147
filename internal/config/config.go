package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is read from the process environment, with an optional .env file
// in the working directory filling in anything unset.
//
// A missing API key is not a load error. The gateway reports it as a
// configuration error on each analysis so the server keeps running.
type Config struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080" validate:"required"`
	LLMBackend string `envconfig:"LLM_BACKEND" default:"gemini" validate:"oneof=gemini claude ollama"`

	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	APIKey        string `envconfig:"API_KEY"`
	GeminiModel   string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash" validate:"required"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/" validate:"required,url"`

	ClaudeAPIKey  string `envconfig:"CLAUDE_API_KEY"`
	ClaudeModel   string `envconfig:"CLAUDE_MODEL" default:"claude-sonnet-4-5" validate:"required"`
	ClaudeBaseURL string `envconfig:"CLAUDE_BASE_URL" validate:"omitempty,url"`

	OllamaHost  string `envconfig:"OLLAMA_HOST" default:"http://localhost:11434" validate:"omitempty,url"`
	OllamaModel string `envconfig:"OLLAMA_MODEL" default:"llava" validate:"required"`

	AnalysisTimeout time.Duration `envconfig:"ANALYSIS_TIMEOUT" default:"60s" validate:"gte=0"`
	SessionTTL      time.Duration `envconfig:"SESSION_TTL" default:"30m" validate:"gt=0"`

	PhotoBackend string `envconfig:"PHOTO_BACKEND" default:"memory" validate:"oneof=memory local"`
	PhotoPath    string `envconfig:"PHOTO_LOCAL_PATH" default:"/data/photos" validate:"required_if=PhotoBackend local"`

	HistoryDBPath string `envconfig:"HISTORY_DB_PATH"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFile   string `envconfig:"LOG_FILE"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`
}

// GeminiKey returns GEMINI_API_KEY, falling back to the generic API_KEY.
func (c *Config) GeminiKey() string {
	if c.GeminiAPIKey != "" {
		return c.GeminiAPIKey
	}
	return c.APIKey
}

// HistoryEnabled reports whether the analysis journal should be opened.
func (c *Config) HistoryEnabled() bool {
	return c.HistoryDBPath != ""
}

var validate = validator.New()

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
