// Package config loads the conversion service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvProduction represents the production environment.
	EnvProduction = "production"
	// EnvDevelopment represents local development.
	EnvDevelopment = "development"
)

// Storage modes for synthesized audio.
const (
	StorageStream   = "stream"
	StorageTempFile = "tempfile"
	StorageGCS      = "gcs"
)

// Summary providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderVertex    = "vertex"
)

// Config holds all service configuration.
type Config struct {
	// Server settings
	Env            string   `envconfig:"ENV"             default:"development"`
	Port           string   `envconfig:"PORT"            default:"8000"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173"`
	StaticDir      string   `envconfig:"STATIC_DIR"`
	MaxUploadBytes int64    `envconfig:"MAX_UPLOAD_BYTES" default:"52428800"`

	// Extraction settings
	MaxExtractBytes int64 `envconfig:"MAX_EXTRACT_BYTES" default:"209715200"`

	// Security settings
	HSTSMaxAge int    `envconfig:"HSTS_MAX_AGE" default:"31536000"`
	CSPMode    string `envconfig:"CSP_MODE"     default:"relaxed"`

	// Logging settings
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Provider credentials
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`

	// Summaries
	SummaryProvider string `envconfig:"SUMMARY_PROVIDER" default:"openai"`
	SummaryModel    string `envconfig:"SUMMARY_MODEL"`
	SummaryWords    int    `envconfig:"SUMMARY_WORDS"    default:"200"`

	// Speech
	TTSModel string `envconfig:"TTS_MODEL" default:"tts-1"`
	TTSVoice string `envconfig:"TTS_VOICE" default:"alloy"`

	// Audio storage
	StorageMode string `envconfig:"STORAGE_MODE" default:"stream"`
	TTLMinutes  int    `envconfig:"TTL_MINUTES"  default:"8"`
	TmpDir      string `envconfig:"TMP_DIR"`
	GCSBucket   string `envconfig:"GCS_BUCKET"`

	// Google Cloud
	GCPProject         string `envconfig:"GCP_PROJECT"`
	GCPRegion          string `envconfig:"GCP_REGION"           default:"us-central1"`
	GCPCredentialsFile string `envconfig:"GCP_CREDENTIALS_FILE"`
}

// LoadConfig loads configuration from .env file and environment variables.
func LoadConfig() (*Config, error) {
	// .env is optional and absent in production
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Error loading .env file", "error", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks combinations envconfig cannot express.
func (c *Config) Validate() error {
	switch c.StorageMode {
	case StorageStream, StorageTempFile:
	case StorageGCS:
		if c.GCSBucket == "" {
			return errors.New("GCS_BUCKET is required when STORAGE_MODE=gcs")
		}
	default:
		return fmt.Errorf("unknown STORAGE_MODE: %s", c.StorageMode)
	}

	switch c.SummaryProvider {
	case ProviderOpenAI, ProviderAnthropic:
	case ProviderVertex:
		if c.GCPProject == "" {
			return errors.New("GCP_PROJECT is required when SUMMARY_PROVIDER=vertex")
		}
	default:
		return fmt.Errorf("unknown SUMMARY_PROVIDER: %s", c.SummaryProvider)
	}

	if c.SummaryWords <= 0 {
		return fmt.Errorf("SUMMARY_WORDS must be positive, got %d", c.SummaryWords)
	}
	if c.TTLMinutes <= 0 {
		return fmt.Errorf("TTL_MINUTES must be positive, got %d", c.TTLMinutes)
	}
	if c.MaxExtractBytes <= 0 {
		return fmt.Errorf("MAX_EXTRACT_BYTES must be positive, got %d", c.MaxExtractBytes)
	}

	return nil
}

// TTL returns how long stored audio is kept.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// BuildCSP constructs Content Security Policy based on mode.
func BuildCSP(mode string) string {
	if mode == "strict" {
		return "default-src 'self'; " +
			"style-src 'self' 'unsafe-inline'; " +
			"script-src 'self'; " +
			"media-src 'self' blob:; " +
			"object-src 'none'; " +
			"base-uri 'self'; " +
			"form-action 'self'"
	}

	return "default-src 'self'; " +
		"style-src 'self' 'unsafe-inline'; " +
		"script-src 'self' 'unsafe-inline'; " +
		"media-src 'self' blob:; " +
		"connect-src 'self' http://localhost:*"
}
