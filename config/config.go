package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Assignment AssignmentConfig `yaml:"assignment"`
	Redis      RedisConfig      `yaml:"redis"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
}

// LoggingConfig selects the zap preset and level.
type LoggingConfig struct {
	Environment string `yaml:"environment"`
	Level       string `yaml:"level"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
	EnableConstraints      bool   `yaml:"enable_constraints"`
}

// AuthConfig holds the bearer token settings.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	Issuer          string        `yaml:"issuer"`
	TokenTTLMinutes int           `yaml:"token_ttl_minutes"`
	TokenTTL        time.Duration `yaml:"-"`
}

// AssignmentConfig tunes the parcel assignment engine.
type AssignmentConfig struct {
	// EnforceDestination restricts a pass to parcels bound for one of the train's routes.
	EnforceDestination bool          `yaml:"enforce_destination"`
	LockBackend        string        `yaml:"lock_backend"`
	LockTTLSeconds     int           `yaml:"lock_ttl_seconds"`
	LockTTL            time.Duration `yaml:"-"`
	// SweepIntervalSeconds runs a background pass over every open train at
	// this interval. Zero disables the sweeper.
	SweepIntervalSeconds int           `yaml:"sweep_interval_seconds"`
	SweepInterval        time.Duration `yaml:"-"`
}

// RedisConfig points at the redis instance used for distributed train locks.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// Load reads the configuration from the given path, applies environment
// overrides and fills in defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"DATABASE_DSN": &c.Database.DSN,
		"JWT_SECRET":   &c.Auth.JWTSecret,
		"REDIS_URL":    &c.Redis.URL,
		"LOG_LEVEL":    &c.Logging.Level,
		"APP_ENV":      &c.Logging.Environment,
	}
	for key, dst := range overrides {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimitPerSec <= 0 {
		c.Server.RateLimitPerSec = 10
	}
	if c.Server.RateLimitBurst <= 0 {
		c.Server.RateLimitBurst = 5
	}
	if c.Server.CacheTTLSeconds <= 0 {
		c.Server.CacheTTLSeconds = 60
	}
	c.Server.CacheTTL = time.Duration(c.Server.CacheTTLSeconds) * time.Second

	if c.Logging.Environment == "" {
		c.Logging.Environment = "development"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Database.LogLevel == "" {
		c.Database.LogLevel = "warn"
	}

	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "longmail"
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		c.Auth.TokenTTLMinutes = 60
	}
	c.Auth.TokenTTL = time.Duration(c.Auth.TokenTTLMinutes) * time.Minute

	if c.Assignment.LockBackend == "" {
		c.Assignment.LockBackend = LockBackendLocal
	}
	if c.Assignment.LockTTLSeconds <= 0 {
		c.Assignment.LockTTLSeconds = 30
	}
	c.Assignment.LockTTL = time.Duration(c.Assignment.LockTTLSeconds) * time.Second
	if c.Assignment.SweepIntervalSeconds < 0 {
		c.Assignment.SweepIntervalSeconds = 0
	}
	c.Assignment.SweepInterval = time.Duration(c.Assignment.SweepIntervalSeconds) * time.Second

	if c.Push.TTL <= 0 {
		c.Push.TTL = 3600
	}
	if c.WorkerPool.Size <= 0 {
		c.WorkerPool.Size = 1
	}
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (or JWT_SECRET) must be set")
	}
	switch c.Assignment.LockBackend {
	case LockBackendLocal:
	case LockBackendRedis:
		if c.Redis.URL == "" {
			return errors.New("redis.url (or REDIS_URL) is required when assignment.lock_backend is redis")
		}
	default:
		return fmt.Errorf("unknown assignment.lock_backend %q", c.Assignment.LockBackend)
	}
	return nil
}
