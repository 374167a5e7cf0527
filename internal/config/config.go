package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

type AppConfig struct {
	ServerAddr string `env:"SERVER_ADDR" envDefault:":7777"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"16"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"8"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	StoreTimeout    time.Duration `env:"DB_TIMEOUT" envDefault:"5s"`

	SessionListLimit int `env:"SESSION_LIST_LIMIT" envDefault:"5"`
	MoveMaxAttempts  int `env:"MOVE_MAX_ATTEMPTS" envDefault:"3"`

	// WSOriginPatterns lists extra browser origins allowed on the echo relay.
	WSOriginPatterns []string `env:"WS_ORIGIN_PATTERNS" envSeparator:","`

	MessagesDir string `env:"MESSAGES_DIR"`
	APIURL      string `env:"AJEDREZ_API_URL" envDefault:"http://127.0.0.1:7777"`
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads AppConfig from the environment and validates it.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClient reads AppConfig for commands that only talk to the HTTP API.
// Store variables are not validated.
func LoadClient() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	if cfg.APIURL == "" {
		return nil, errors.New("AJEDREZ_API_URL is required")
	}
	return cfg, nil
}

func (c *AppConfig) normalize() {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.MessagesDir = strings.TrimSpace(c.MessagesDir)
	origins := c.WSOriginPatterns[:0]
	for _, o := range c.WSOriginPatterns {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.WSOriginPatterns = origins
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.SessionListLimit <= 0 {
		c.SessionListLimit = 5
	}
	if c.MoveMaxAttempts <= 0 {
		c.MoveMaxAttempts = 1
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 5 * time.Second
	}
}

// Validate checks the variables the selected store driver requires.
func (c *AppConfig) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite, DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
	case DriverRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.MaxIdleConns > c.MaxOpenConns && c.MaxOpenConns > 0 {
		return fmt.Errorf("DB_MAX_IDLE_CONNS (%d) exceeds DB_MAX_OPEN_CONNS (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	return nil
}
