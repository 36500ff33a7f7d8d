package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// MinSecretLength is the shortest JWT_SECRET accepted for HS256.
const MinSecretLength = 32

// Config holds runtime configuration sourced from env vars.
type Config struct {
	AppEnv      string   `envconfig:"APP_ENV" default:"development"`
	Port        string   `envconfig:"PORT" default:"8080"`
	StoreDriver string   `envconfig:"STORE_DRIVER" default:"memory"`
	DatabaseURL string   `envconfig:"DATABASE_URL"`
	RedisAddr   string   `envconfig:"REDIS_ADDR"`
	SeedUsers   bool     `envconfig:"SEED_USERS" default:"true"`
	CORSOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	JWTSecret     string `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer     string `envconfig:"JWT_ISSUER" default:"user-manager"`
	JWTAudience   string `envconfig:"JWT_AUDIENCE" default:"user-manager"`
	JWTTTLMinutes int    `envconfig:"JWT_TTL_MINUTES" default:"30"`

	MockLoginRatePerMinute int `envconfig:"MOCK_LOGIN_RATE_PER_MINUTE" default:"30"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.RedisAddr = strings.TrimSpace(c.RedisAddr)
	c.JWTSecret = strings.TrimSpace(c.JWTSecret)

	origins := make([]string, 0, len(c.CORSOrigins))
	for _, o := range c.CORSOrigins {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c.CORSOrigins = origins
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
	case DriverRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when STORE_DRIVER=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if len(c.JWTSecret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", MinSecretLength))
	}
	if c.JWTTTLMinutes <= 0 {
		errs = append(errs, errors.New("JWT_TTL_MINUTES must be positive"))
	}
	if c.MockLoginRatePerMinute <= 0 {
		errs = append(errs, errors.New("MOCK_LOGIN_RATE_PER_MINUTE must be positive"))
	}
	return errors.Join(errs...)
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// JWTTTL is the lifetime of issued tokens.
func (c Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
