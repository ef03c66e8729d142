// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// MinSecretLength is the shortest JWT_SECRET accepted in production.
const MinSecretLength = 32

// developmentSecret signs tokens when no JWT_SECRET is configured outside
// production. Tokens signed with it are forgeable by anyone with the source.
const developmentSecret = "development-only-insecure-jwt-secret-change-me"

// Config is read once at startup.
type Config struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"3001"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT"`

	StoreDriver      string        `env:"STORE_DRIVER" envDefault:"sqlite"`
	DatabasePath     string        `env:"DATABASE_PATH" envDefault:"stylist-users.db"`
	DatabaseURL      string        `env:"DATABASE_URL"`
	DBConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"5s"`
	OfflineFallback  bool          `env:"OFFLINE_FALLBACK" envDefault:"false"`

	JWTSecret    string        `env:"JWT_SECRET"`
	JWTExpiresIn time.Duration `env:"JWT_EXPIRES_IN" envDefault:"168h"`
	JWTIssuer    string        `env:"JWT_ISSUER"`
	BcryptCost   int           `env:"BCRYPT_COST" envDefault:"10"`

	GoogleClientID  string `env:"GOOGLE_CLIENT_ID"`
	AppleClientID   string `env:"APPLE_CLIENT_ID"`
	AppleTeamID     string `env:"APPLE_TEAM_ID"`
	AppleKeyID      string `env:"APPLE_KEY_ID"`
	ApplePrivateKey string `env:"APPLE_PRIVATE_KEY"`

	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// InsecureSecret is set when the development fallback secret is in use.
	InsecureSecret bool `env:"-"`
}

// Load reads envFile if it exists, then parses and validates the
// environment. Variables already set take precedence over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate normalizes and checks the configuration. Outside production a
// missing JWT secret is replaced with a fixed development value and
// InsecureSecret is set.
func (c *Config) Validate() error {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("APP_ENV must be one of development, production, test; got %q", c.Env)
	}

	if c.JWTSecret == "" && !c.IsProduction() {
		c.JWTSecret = developmentSecret
		c.InsecureSecret = true
	}
	if c.IsProduction() && len(c.JWTSecret) < MinSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in production", MinSecretLength)
	}
	if c.JWTExpiresIn <= 0 {
		return errors.New("JWT_EXPIRES_IN must be positive")
	}

	if c.BcryptCost < 4 || c.BcryptCost > 14 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", c.BcryptCost)
	}

	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case DriverSQLite:
		if c.DatabasePath == "" {
			return errors.New("DATABASE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	case DriverMemory:
		if c.IsProduction() {
			return errors.New("the memory driver is not allowed in production")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be sqlite, postgres or memory; got %q", c.StoreDriver)
	}
	if c.OfflineFallback && c.IsProduction() {
		return errors.New("OFFLINE_FALLBACK is not allowed in production")
	}

	exchange := []string{c.AppleTeamID, c.AppleKeyID, c.ApplePrivateKey}
	set := 0
	for _, v := range exchange {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != len(exchange) {
		return errors.New("APPLE_TEAM_ID, APPLE_KEY_ID and APPLE_PRIVATE_KEY must be set together")
	}
	if set != 0 && c.AppleClientID == "" {
		return errors.New("APPLE_CLIENT_ID is required when Apple code exchange is configured")
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	switch c.LogFormat {
	case "":
		c.LogFormat = "text"
		if c.IsProduction() {
			c.LogFormat = "json"
		}
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json; got %q", c.LogFormat)
	}

	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// AppleCodeExchange reports whether authorization code redemption is
// configured.
func (c *Config) AppleCodeExchange() bool {
	return c.AppleTeamID != "" && c.AppleKeyID != "" && c.ApplePrivateKey != ""
}

// SlogLevel parses LOG_LEVEL.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}
