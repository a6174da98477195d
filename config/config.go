// Package config loads service configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Aryan20apr/PulseChat/domain/chat"
)

// ErrInvalid is returned for configuration values that parse but are unusable.
var ErrInvalid = errors.New("invalid configuration")

// Config is the service configuration.
type Config struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	AllowedOrigins  string        `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000,http://localhost:8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`

	RelayBackend  string `env:"RELAY_BACKEND" envDefault:"redis"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	NATSURL       string `env:"NATS_URL" envDefault:"nats://localhost:4222"`

	RatePerSecond  float64 `env:"RATE_LIMIT_PER_SECOND" envDefault:"10"`
	RateBurst      int     `env:"RATE_LIMIT_BURST" envDefault:"20"`
	SendBufferSize int     `env:"SEND_BUFFER_SIZE" envDefault:"256"`
	MaxMessageSize int64   `env:"MAX_MESSAGE_SIZE" envDefault:"32768"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.RelayBackend = strings.ToLower(strings.TrimSpace(cfg.RelayBackend))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	switch c.RelayBackend {
	case "redis", "nats", "memory":
	default:
		errs = append(errs, fmt.Errorf("RELAY_BACKEND %q must be redis, nats or memory", c.RelayBackend))
	}
	switch c.LogLevel {
	case "info", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q must be info or error", c.LogLevel))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}
	if c.RatePerSecond <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_SECOND must be positive"))
	}
	if c.RateBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_BURST must be positive"))
	}
	if c.SendBufferSize <= 0 {
		errs = append(errs, errors.New("SEND_BUFFER_SIZE must be positive"))
	}
	// Frames over the read limit close the socket, so the limit must admit
	// every frame with valid content.
	if c.MaxMessageSize < chat.MaxFrameSize {
		errs = append(errs, fmt.Errorf("MAX_MESSAGE_SIZE must be at least %d", chat.MaxFrameSize))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
