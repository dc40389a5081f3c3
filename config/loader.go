package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// EnvPrefix prefixes every environment override
	EnvPrefix = "TRADEAUTH_"
	// DefaultEnvFile is read when present
	DefaultEnvFile = ".env"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger  *slog.Logger
	envFile string
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, envFile: DefaultEnvFile}
}

// WithEnvFile replaces the dotenv file path. Empty disables it.
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. Dotenv file (only sets variables not already in the environment)
// 3. YAML file at path, when path is not empty
// 4. TRADEAUTH_* environment variables
func (l *Loader) Load(path string) (*Config, error) {
	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err == nil {
			l.logger.Debug("Loaded env file", slog.String("path", l.envFile))
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", l.envFile, err)
		}
	}

	config := DefaultConfig()
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config file", slog.String("path", path))
		config = fileConfig
	}

	if err := applyEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func applyEnv(c *Config) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	str("SERVER_HOST", &c.Server.Host)
	integer("SERVER_PORT", &c.Server.Port)
	duration("SERVER_READ_TIMEOUT", &c.Server.ReadTimeout)
	duration("SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeout)
	duration("SERVER_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)

	str("AUTH_SIGNING_SECRET", &c.Auth.SigningSecret)
	str("AUTH_ISSUER", &c.Auth.Issuer)
	duration("AUTH_REFRESH_TTL", &c.Auth.RefreshTTL)
	integer("AUTH_BCRYPT_COST", &c.Auth.BcryptCost)

	str("DATABASE_DSN", &c.Database.DSN)
	str("REDIS_URL", &c.Redis.URL)

	boolean("EVENTS_ENABLED", &c.Events.Enabled)
	str("EVENTS_TOPIC_PREFIX", &c.Events.TopicPrefix)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	return errors.Join(errs...)
}
