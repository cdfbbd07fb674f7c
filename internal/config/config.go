package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents application configuration loaded from environment
// variables. DATABASE_URL and REDIS_ADDR are optional: when either is
// absent the service degrades to its in-process equivalents, which keeps
// local and CI runs operational without external services.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   string `env:"PORT" envDefault:"8080"`

	DatabaseURL   string `env:"DATABASE_URL"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	ProcessorBaseURL string `env:"PROCESSOR_BASE_URL"`
	ProcessorAPIKey  string `env:"PROCESSOR_API_KEY"`
	WebhookBaseURL   string `env:"WEBHOOK_BASE_URL" envDefault:"http://localhost:8080"`

	StoragePath    string `env:"STORAGE_PATH" envDefault:"./storage"`
	StorageBaseURL string `env:"STORAGE_BASE_URL" envDefault:"http://localhost:8080/static"`

	PollIntervalSeconds int `env:"POLL_INTERVAL_SECONDS" envDefault:"3"`
	PollBatchSize       int `env:"POLL_BATCH_SIZE" envDefault:"50"`

	HTTPReadTimeoutSeconds  int `env:"HTTP_READ_TIMEOUT_SECONDS" envDefault:"15"`
	HTTPWriteTimeoutSeconds int `env:"HTTP_WRITE_TIMEOUT_SECONDS" envDefault:"30"`
	HTTPIdleTimeoutSeconds  int `env:"HTTP_IDLE_TIMEOUT_SECONDS" envDefault:"60"`

	RateLimitPerMin int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`

	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"104857600"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.PollIntervalSeconds < 1 {
		return nil, fmt.Errorf("POLL_INTERVAL_SECONDS must be at least 1")
	}
	return cfg, nil
}

// WebhookURL is the callback address handed to the external processor.
func (c *Config) WebhookURL() string {
	return c.WebhookBaseURL + "/v1/webhook"
}

// PollInterval returns the poll daemon's pacing interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c *Config) HTTPReadTimeout() time.Duration {
	return time.Duration(c.HTTPReadTimeoutSeconds) * time.Second
}

func (c *Config) HTTPWriteTimeout() time.Duration {
	return time.Duration(c.HTTPWriteTimeoutSeconds) * time.Second
}

func (c *Config) HTTPIdleTimeout() time.Duration {
	return time.Duration(c.HTTPIdleTimeoutSeconds) * time.Second
}
