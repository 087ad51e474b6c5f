// Package config loads lokator's configuration from defaults, an optional
// YAML file, LOKATOR_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/erazemk/lokator/internal/db"
)

// EnvPrefix prefixes every environment variable, e.g. LOKATOR_DB_PATH.
const EnvPrefix = "LOKATOR"

// Config holds all application configuration.
type Config struct {
	DB       DBConfig       `mapstructure:"db"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Transfer TransferConfig `mapstructure:"transfer"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// DBConfig selects and locates the database.
type DBConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// Target returns what db.Open expects for the configured driver.
func (c DBConfig) Target() string {
	if c.Driver == db.DriverPostgres {
		return c.DSN
	}
	return c.Path
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Path   string `mapstructure:"path"`
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AdminConfig names the account created by init.
type AdminConfig struct {
	User string `mapstructure:"user"`
}

// TransferConfig tunes the transfer engine.
type TransferConfig struct {
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	BulkWorkers  int           `mapstructure:"bulk_workers"`
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// SetDefaults sets default values for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db.driver", db.DriverSQLite)
	v.SetDefault("db.path", "lokator.sqlite3")
	v.SetDefault("db.dsn", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("log.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("admin.user", "Admin")

	v.SetDefault("transfer.max_retries", 3)
	v.SetDefault("transfer.retry_backoff", "20ms")
	v.SetDefault("transfer.bulk_workers", 4)

	v.SetDefault("metrics.enabled", true)
}

// New returns a viper instance with defaults and environment overrides set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file into v and decodes the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.DB.Driver {
	case db.DriverSQLite:
		if c.DB.Path == "" {
			errs = append(errs, errors.New("db.path is required for sqlite"))
		}
	case db.DriverPostgres:
		if c.DB.DSN == "" {
			errs = append(errs, errors.New("db.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("db.driver %q is not one of sqlite, postgres", c.DB.Driver))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}

	if c.Transfer.MaxRetries < 0 {
		errs = append(errs, errors.New("transfer.max_retries must not be negative"))
	}
	if c.Transfer.RetryBackoff < 0 {
		errs = append(errs, errors.New("transfer.retry_backoff must not be negative"))
	}
	if c.Transfer.BulkWorkers < 1 {
		errs = append(errs, errors.New("transfer.bulk_workers must be at least 1"))
	}

	return errors.Join(errs...)
}
