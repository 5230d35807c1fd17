// Package config loads and validates the service configuration from
// environment variables (MLSTUDIO_ prefix) and an optional YAML file.
// Values from the file take precedence over the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// envPrefix is the prefix for all environment variables.
const envPrefix = "MLSTUDIO"

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Sessions SessionConfig  `yaml:"sessions" envconfig:"SESSIONS"`
	Dataset  DatasetConfig  `yaml:"dataset" envconfig:"DATASET"`
	Tracing  TracingConfig  `yaml:"tracing" envconfig:"TRACING"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/mlstudio.log"`
}

// SecurityConfig contains rate limiting configuration.
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig configures the token bucket applied per server instance.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// SessionConfig controls the lifecycle of preprocessing sessions.
type SessionConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl" envconfig:"IDLE_TTL" default:"30m"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SWEEP_INTERVAL" default:"5m"`
	MaxSessions   int           `yaml:"max_sessions" envconfig:"MAX_SESSIONS" default:"256"`
}

// DatasetConfig bounds uploads entering the pipeline.
type DatasetConfig struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"33554432"`
}

// TracingConfig controls the OpenTelemetry tracer. Disabled by default; when
// enabled, spans are written to stdout.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME" default:"mlstudio-preprocess"`
}

// Load reads configuration from the environment (with struct-tag defaults)
// and then overlays an optional YAML file whose path comes from
// MLSTUDIO_CONFIG, default config.yaml.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	path := os.Getenv(envPrefix + "_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	if c.Dataset.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.Dataset.MaxUploadBytes)
	}
	if c.Sessions.MaxSessions <= 0 {
		return fmt.Errorf("max sessions must be positive, got %d", c.Sessions.MaxSessions)
	}
	return nil
}
