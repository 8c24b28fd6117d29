// Package config holds the runtime configuration of the onager binary.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config contains every configurable parameter. Use DefaultConfig() to get
// sensible defaults, then override as needed.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Adapter  AdapterConfig  `yaml:"adapter"`
	Log      LogConfig      `yaml:"log"`
	MCP      MCPConfig      `yaml:"mcp"`
}

type DatabaseConfig struct {
	DSN           string        `yaml:"dsn"`                              // DuckDB DSN (default: ":memory:")
	Threads       int           `yaml:"threads" validate:"gte=0"`         // DuckDB threads (default: 0 = DuckDB default)
	MemoryLimitGB int           `yaml:"memory_limit_gb" validate:"gte=0"` // Memory limit in GB (default: 0 = DuckDB default)
	MaxOpenConns  int           `yaml:"max_open_conns" validate:"gte=2"`  // Pool size, edge queries need a second connection (default: 4)
	QueryTimeout  time.Duration `yaml:"query_timeout" validate:"gte=0"`   // Per-statement timeout (default: 0 = none)
}

type AdapterConfig struct {
	ChunkSize  int    `yaml:"chunk_size" validate:"gte=1"`                        // Rows per emitted chunk (default: 2048)
	Invocation string `yaml:"invocation" validate:"oneof=two_phase compute_once"` // Engine call style (default: compute_once)
}

type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"` // Minimum level (default: info)
	Development bool   `yaml:"development"`                                  // Human-readable console output (default: false)
}

type MCPConfig struct {
	ServerName    string `yaml:"server_name" validate:"required"`
	ServerVersion string `yaml:"server_version" validate:"required"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			DSN:          ":memory:",
			MaxOpenConns: 4,
		},
		Adapter: AdapterConfig{
			ChunkSize:  2048,
			Invocation: "compute_once",
		},
		Log: LogConfig{
			Level: "info",
		},
		MCP: MCPConfig{
			ServerName:    "onager",
			ServerVersion: "0.1.0",
		},
	}
}

// WithDSN returns a copy of the config with a different database.
func (c Config) WithDSN(dsn string) Config {
	c.Database.DSN = dsn
	return c
}

// WithThreads returns a copy of the config with modified DuckDB threads.
func (c Config) WithThreads(n int) Config {
	c.Database.Threads = n
	return c
}

// WithQueryTimeout returns a copy of the config with modified query timeout.
func (c Config) WithQueryTimeout(d time.Duration) Config {
	c.Database.QueryTimeout = d
	return c
}

// WithChunkSize returns a copy of the config with modified chunk size.
func (c Config) WithChunkSize(n int) Config {
	c.Adapter.ChunkSize = n
	return c
}

// WithInvocation returns a copy of the config with a different engine call style.
func (c Config) WithInvocation(mode string) Config {
	c.Adapter.Invocation = mode
	return c
}

// WithLogLevel returns a copy of the config with modified log level.
func (c Config) WithLogLevel(level string) Config {
	c.Log.Level = level
	return c
}

// WithDevelopmentLog returns a copy of the config with development logging enabled/disabled.
func (c Config) WithDevelopmentLog(enabled bool) Config {
	c.Log.Development = enabled
	return c
}

var validate = validator.New()

// Validate checks if the configuration is valid and returns an error if not.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			msg := "must satisfy " + fe.Tag()
			if fe.Param() != "" {
				msg += "=" + fe.Param()
			}
			return &ConfigError{Field: fe.Namespace(), Message: msg}
		}
		return &ConfigError{Field: "Config", Message: err.Error()}
	}
	return nil
}

// Load reads a YAML file over the defaults and validates the result. An
// empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Message
}
