package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "STEPFLOW_"

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Uploads   UploadsConfig   `yaml:"uploads"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Notifier  NotifierConfig  `yaml:"notifier"`
	MCP       MCPConfig       `yaml:"mcp"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"` // "http" or "stdio"
}

type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

type UploadsConfig struct {
	Dir      string `yaml:"dir"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// RateLimitConfig throttles login and registration per client IP.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// NotifierConfig bounds the retry backoff of undelivered notifications and
// the final delivery attempt on shutdown.
type NotifierConfig struct {
	MinBackoff   time.Duration `yaml:"min_backoff"`
	MaxBackoff   time.Duration `yaml:"max_backoff"`
	DrainTimeout time.Duration `yaml:"drain_timeout"`
}

type MCPConfig struct {
	Enabled   bool   `yaml:"enabled"`
	StdioUser string `yaml:"stdio_user"`
}

// Default returns the configuration used before any file or environment overrides.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "stepflow.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Uploads: UploadsConfig{
			Dir:      "uploads",
			MaxBytes: 16 << 20,
		},
		RateLimit: RateLimitConfig{
			RPS:   1,
			Burst: 5,
		},
		Notifier: NotifierConfig{
			MinBackoff:   500 * time.Millisecond,
			MaxBackoff:   30 * time.Second,
			DrainTimeout: 5 * time.Second,
		},
		MCP: MCPConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(envPrefix + "CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Transport.Mode {
	case "http":
		if c.Auth.Secret == "" {
			errs = append(errs, fmt.Errorf("%sAUTH_SECRET is required in http mode", envPrefix))
		}
	case "stdio":
		if c.MCP.StdioUser == "" {
			errs = append(errs, fmt.Errorf("%sMCP_STDIO_USER is required in stdio mode", envPrefix))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid transport mode %q", c.Transport.Mode))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port %d", c.Server.Port))
	}
	if c.Notifier.MaxBackoff < c.Notifier.MinBackoff {
		errs = append(errs, fmt.Errorf("notifier max backoff %s below min %s", c.Notifier.MaxBackoff, c.Notifier.MinBackoff))
	}
	return errors.Join(errs...)
}

func applyEnv(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := os.Getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}
	parse := func(key string, apply func(string) error) {
		if v := os.Getenv(envPrefix + key); v != "" {
			if err := apply(v); err != nil {
				errs = append(errs, fmt.Errorf("invalid %s%s: %w", envPrefix, key, err))
			}
		}
	}

	str("SERVER_HOST", &cfg.Server.Host)
	parse("SERVER_PORT", func(v string) (err error) {
		cfg.Server.Port, err = strconv.Atoi(v)
		return err
	})
	str("DB_PATH", &cfg.DB.Path)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_PATH", &cfg.Log.Path)
	str("TRANSPORT_MODE", &cfg.Transport.Mode)
	str("AUTH_SECRET", &cfg.Auth.Secret)
	parse("AUTH_TOKEN_TTL", func(v string) (err error) {
		cfg.Auth.TokenTTL, err = time.ParseDuration(v)
		return err
	})
	str("UPLOADS_DIR", &cfg.Uploads.Dir)
	parse("UPLOADS_MAX_BYTES", func(v string) (err error) {
		cfg.Uploads.MaxBytes, err = strconv.ParseInt(v, 10, 64)
		return err
	})
	parse("RATE_LIMIT_RPS", func(v string) (err error) {
		cfg.RateLimit.RPS, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse("RATE_LIMIT_BURST", func(v string) (err error) {
		cfg.RateLimit.Burst, err = strconv.Atoi(v)
		return err
	})
	parse("NOTIFIER_MIN_BACKOFF", func(v string) (err error) {
		cfg.Notifier.MinBackoff, err = time.ParseDuration(v)
		return err
	})
	parse("NOTIFIER_MAX_BACKOFF", func(v string) (err error) {
		cfg.Notifier.MaxBackoff, err = time.ParseDuration(v)
		return err
	})
	parse("NOTIFIER_DRAIN_TIMEOUT", func(v string) (err error) {
		cfg.Notifier.DrainTimeout, err = time.ParseDuration(v)
		return err
	})
	parse("MCP_ENABLED", func(v string) (err error) {
		cfg.MCP.Enabled, err = strconv.ParseBool(v)
		return err
	})
	str("MCP_STDIO_USER", &cfg.MCP.StdioUser)

	return errors.Join(errs...)
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
