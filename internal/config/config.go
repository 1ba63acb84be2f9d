// Package config loads process configuration for the pgexec binary.
//
// Values come from, in increasing priority: built-in defaults, an optional
// YAML file, a .env file in the working directory, and PGEXEC_* environment
// variables (dots become underscores: PGEXEC_SERVER_ADDR).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/youssefsiam38/pgexec"
)

// ErrInvalidConfig is returned when the configuration is invalid
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds process configuration.
type Config struct {
	ConnectionString string `mapstructure:"connection_string"`
	Driver           string `mapstructure:"driver"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Server struct {
		Addr              string        `mapstructure:"addr"`
		ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
		ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
		JWTSecret         string        `mapstructure:"jwt_secret"`
		RateLimit         float64       `mapstructure:"rate_limit"`
		RateBurst         int           `mapstructure:"rate_burst"`
	} `mapstructure:"server"`

	Defaults struct {
		CommandTimeoutSeconds int    `mapstructure:"command_timeout_seconds"`
		IsolationLevel        string `mapstructure:"isolation_level"`
		ThrowErrorOnFailure   bool   `mapstructure:"throw_error_on_failure"`
	} `mapstructure:"defaults"`
}

var defaults = map[string]any{
	"connection_string":                "",
	"driver":                           "pgx",
	"log.level":                        "info",
	"log.format":                       "text",
	"server.addr":                      ":8080",
	"server.read_header_timeout":       "5s",
	"server.shutdown_timeout":          "15s",
	"server.jwt_secret":                "",
	"server.rate_limit":                0,
	"server.rate_burst":                0,
	"defaults.command_timeout_seconds": 30,
	"defaults.isolation_level":         "Default",
	"defaults.throw_error_on_failure":  true,
}

// Load reads configuration. path may be empty, in which case only
// defaults, .env and the environment are consulted.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("PGEXEC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Driver {
	case "pgx", "databasesql":
	default:
		return fmt.Errorf("%w: driver must be pgx or databasesql, got %q", ErrInvalidConfig, c.Driver)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalidConfig, c.Log.Format)
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}

	if c.Defaults.CommandTimeoutSeconds < 0 {
		return fmt.Errorf("%w: defaults.command_timeout_seconds must be >= 0", ErrInvalidConfig)
	}

	if _, err := pgexec.ParseIsolationLevel(c.Defaults.IsolationLevel); err != nil {
		return fmt.Errorf("%w: defaults.isolation_level: %w", ErrInvalidConfig, err)
	}

	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("%w: server.rate_limit and server.rate_burst must be >= 0", ErrInvalidConfig)
	}

	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("%w: log.level: %w", ErrInvalidConfig, err)
	}
	return level, nil
}

// Options returns the per-call defaults.
func (c *Config) Options() pgexec.Options {
	level, _ := pgexec.ParseIsolationLevel(c.Defaults.IsolationLevel)
	return pgexec.Options{
		ThrowErrorOnFailure:   c.Defaults.ThrowErrorOnFailure,
		CommandTimeoutSeconds: c.Defaults.CommandTimeoutSeconds,
		IsolationLevel:        level,
	}
}
