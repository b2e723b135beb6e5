package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Playground process configuration.
//
// This structure captures the process-level settings of the playground
// agent:
//   - Logging configuration
//   - Prometheus metrics endpoint
//   - Mount table policy
//   - Remoting connection settings
//
// The data source settings (mount-path, playground-folder) are not part of
// this file: they arrive with the data source context on SetContext.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (PLAYGROUND_*)
//  3. Configuration file (YAML, TOML or JSON)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Playground contains router settings
	Playground PlaygroundConfig `mapstructure:"playground" yaml:"playground"`

	// Remoting contains the connection settings of the remoting agent
	Remoting RemotingConfig `mapstructure:"remoting" yaml:"remoting"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// MetricsConfig controls the Prometheus metrics HTTP server.
type MetricsConfig struct {
	// Enabled starts the metrics server
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port of the metrics server
	Port int `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
}

// PlaygroundConfig contains router settings.
type PlaygroundConfig struct {
	// CollisionPolicy decides what happens when two owners map to
	// overlapping mount prefixes.
	// Valid values: reject, first-wins, coexist
	CollisionPolicy string `mapstructure:"collision_policy" yaml:"collision_policy" validate:"required,oneof=reject first-wins coexist"`
}

// RemotingConfig contains the connection settings of the remoting agent.
type RemotingConfig struct {
	// DialTimeout bounds a single connection attempt
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout" validate:"required,gt=0"`

	// MaxElapsedTime bounds the total time spent retrying the dial
	// (0 keeps retrying until shutdown)
	MaxElapsedTime time.Duration `mapstructure:"max_elapsed_time" yaml:"max_elapsed_time" validate:"gte=0"`

	// RequestsPerSecond caps the sustained rate of host requests served
	// (0 = unlimited)
	RequestsPerSecond uint `mapstructure:"requests_per_second" yaml:"requests_per_second"`

	// RequestBurst is the number of requests that may be served back to back
	// (default: 2x requests_per_second)
	RequestBurst uint `mapstructure:"request_burst" yaml:"request_burst"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (PLAYGROUND_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use PLAYGROUND_ prefix and underscores
	// Example: PLAYGROUND_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("PLAYGROUND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper knows about
	for _, key := range []string{
		"logging.level", "logging.format", "logging.output",
		"metrics.enabled", "metrics.port",
		"playground.collision_policy",
		"remoting.dial_timeout", "remoting.max_elapsed_time",
		"remoting.requests_per_second", "remoting.request_burst",
	} {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/playground/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		// An explicit path that does not exist is treated the same way
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "playground")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "playground")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
