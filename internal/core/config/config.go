package config

import (
	"time"

	"github.com/adpulse/dashcore/internal/infra/stream"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	API     APIConfig     `yaml:"api"`
	Stream  StreamConfig  `yaml:"stream"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds debug HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// APIConfig holds backend request client settings.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
}

// StreamConfig selects the push-channel delivery mechanism.
type StreamConfig struct {
	// Mode is one of "redis", "sse", "memory".
	Mode        string             `yaml:"mode"`
	Redis       stream.RedisConfig `yaml:"redis"`
	SSEEndpoint string             `yaml:"sse_endpoint"`
}
