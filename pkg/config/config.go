// Package config loads client settings from a YAML file and SACCO_* environment
// variables.
package config

import (
	"fmt"
	"os"
	"time"

	"opensacco-client/pkg/client"
	"opensacco-client/pkg/logging"
	"opensacco-client/pkg/resilience"
	"opensacco-client/pkg/session"
	"opensacco-client/pkg/session/file"
	"opensacco-client/pkg/session/memory"
	"opensacco-client/pkg/session/redis"

	"github.com/ilyakaznacheev/cleanenv"
)

// PathEnv names the environment variable holding the config file path.
const PathEnv = "SACCO_CONFIG"

// Session backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the full client configuration.
type Config struct {
	API        API            `yaml:"api"`
	Resilience Resilience     `yaml:"resilience"`
	Session    Session        `yaml:"session"`
	Log        logging.Config `yaml:"log"`
	Server     Server         `yaml:"server"`
	Metrics    Metrics        `yaml:"metrics"`
}

// API locates the portal API.
type API struct {
	BaseURL   string `yaml:"base_url" env:"SACCO_API_URL" env-default:"http://localhost:8000"`
	UserAgent string `yaml:"user_agent" env:"SACCO_USER_AGENT" env-default:"opensacco-client"`
}

// Resilience configures the request timeout and circuit breaker.
type Resilience struct {
	Timeout             time.Duration `yaml:"timeout" env:"SACCO_TIMEOUT" env-default:"30s"`
	MaxRequests         uint32        `yaml:"max_requests" env-default:"1"`
	Interval            time.Duration `yaml:"interval" env-default:"60s"`
	OpenTimeout         time.Duration `yaml:"open_timeout" env-default:"30s"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures" env-default:"5"`
}

// Session selects where tokens are kept.
type Session struct {
	Backend string `yaml:"backend" env:"SACCO_SESSION_BACKEND" env-default:"file"`
	// Path is the token file for the file backend. Empty means the user config dir.
	Path  string `yaml:"path" env:"SACCO_SESSION_PATH"`
	Redis Redis  `yaml:"redis"`
}

// Redis configures the shared token store.
type Redis struct {
	Addr      string        `yaml:"addr" env:"SACCO_REDIS_ADDR" env-default:"localhost:6379"`
	Password  string        `yaml:"password" env:"SACCO_REDIS_PASSWORD"`
	DB        int           `yaml:"db" env:"SACCO_REDIS_DB" env-default:"0"`
	KeyPrefix string        `yaml:"key_prefix" env:"SACCO_REDIS_PREFIX" env-default:"sacco:session:"`
	TTL       time.Duration `yaml:"ttl" env:"SACCO_REDIS_TTL" env-default:"0s"`
}

// Server configures the local dashboard server.
type Server struct {
	Address      string        `yaml:"address" env:"SACCO_SERVER_ADDR" env-default:":8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env-default:"5s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env-default:"30s"`
}

// Metrics configures Prometheus export.
type Metrics struct {
	Namespace string `yaml:"namespace" env:"SACCO_METRICS_NAMESPACE" env-default:"opensacco"`
}

// Path returns flagValue, or the SACCO_CONFIG variable when flagValue is empty.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(PathEnv)
}

// Load reads the file at path, then applies environment overrides. With an
// empty path only defaults and the environment are used.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	} else {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values cleanenv cannot.
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case BackendFile, BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("config: unknown session backend %q", c.Session.Backend)
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("config: api.base_url is required")
	}
	return nil
}

// Usage returns the environment variable help text.
func Usage() string {
	var cfg Config
	text, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return text
}

// ResilientConfig converts the resilience section.
func (c *Config) ResilientConfig() resilience.ResilientConfig {
	rc := resilience.DefaultResilientConfig().
		WithTimeout(c.Resilience.Timeout).
		WithCircuitBreakerTimeout(c.Resilience.OpenTimeout)
	rc.CircuitBreakerConfig.MaxRequests = c.Resilience.MaxRequests
	rc.CircuitBreakerConfig.Interval = c.Resilience.Interval
	rc.CircuitBreakerConfig.ReadyToTrip = resilience.ConsecutiveFailures(c.Resilience.ConsecutiveFailures)
	return rc
}

// ClientConfig converts the api and resilience sections.
func (c *Config) ClientConfig() client.Config {
	return client.Config{
		BaseURL:    c.API.BaseURL,
		UserAgent:  c.API.UserAgent,
		Resilience: c.ResilientConfig(),
	}
}

// RedisConfig converts the redis session section.
func (c *Config) RedisConfig() redis.Config {
	rc := redis.DefaultConfig()
	rc.Addr = c.Session.Redis.Addr
	rc.Password = c.Session.Redis.Password
	rc.DB = c.Session.Redis.DB
	rc.KeyPrefix = c.Session.Redis.KeyPrefix
	rc.TTL = c.Session.Redis.TTL
	return rc
}

// OpenStore opens the configured token store.
func (c *Config) OpenStore() (session.Store, error) {
	switch c.Session.Backend {
	case BackendMemory:
		return memory.New(), nil
	case BackendRedis:
		store, err := redis.New(c.RedisConfig())
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		path := c.Session.Path
		if path == "" {
			path = file.DefaultPath()
		}
		store, err := file.New(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}
