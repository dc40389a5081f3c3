// Package config provides configuration loading for the tradeauth service.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/Gladiston-Porto/Trading-APP-sub001/core"
)

// MinSigningSecretLength matches the tokenizer's HMAC requirement
const MinSigningSecretLength = 32

// Config represents the complete service configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Events   EventsConfig   `yaml:"events"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig configures token signing and password hashing
type AuthConfig struct {
	// SigningSecret is the HS256 key. Empty means an ephemeral ES256 key is
	// generated at startup, which only suits development.
	SigningSecret string        `yaml:"signing_secret"`
	Issuer        string        `yaml:"issuer"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl"`
	BcryptCost    int           `yaml:"bcrypt_cost"`
}

// DatabaseConfig configures the credential store
type DatabaseConfig struct {
	// DSN is a SQLite file path or URI
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the rotation store and event stream.
// An empty URL keeps both in process.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// EventsConfig configures auth event publishing
type EventsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// LogConfig configures the slog handler
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            9000,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Auth: AuthConfig{
			Issuer:     "tradeauth",
			RefreshTTL: core.DefaultRefreshTTL,
			BcryptCost: bcrypt.DefaultCost,
		},
		Database: DatabaseConfig{
			DSN: "file:tradeauth.db?cache=shared",
		},
		Events: EventsConfig{
			Enabled:     true,
			TopicPrefix: "tradeauth.",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative")
	}
	if c.Auth.SigningSecret != "" && len(c.Auth.SigningSecret) < MinSigningSecretLength {
		return fmt.Errorf("auth.signing_secret must be at least %d bytes", MinSigningSecretLength)
	}
	if c.Auth.RefreshTTL <= 0 {
		return fmt.Errorf("auth.refresh_ttl must be positive")
	}
	if c.Auth.RefreshTTL <= core.AccessTokenTTL {
		return fmt.Errorf("auth.refresh_ttl must be longer than the access token lifetime (%s)", core.AccessTokenTTL)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("auth.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Addr is the listen address
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SlogLevel parses Level
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("log.level must be debug, info, warn or error: %w", err)
	}
	return level, nil
}

// NewLogger builds the logger described by c, writing to w
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// LoadFromFile loads configuration from a YAML file on top of the defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}
