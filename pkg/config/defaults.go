package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values ("", 0) are replaced with defaults; explicit values are
// preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	applyPlaygroundDefaults(&cfg.Playground)
	applyRemotingDefaults(&cfg.Remoting)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyPlaygroundDefaults(cfg *PlaygroundConfig) {
	if cfg.CollisionPolicy == "" {
		cfg.CollisionPolicy = "reject"
	}
	cfg.CollisionPolicy = strings.ToLower(cfg.CollisionPolicy)
}

func applyRemotingDefaults(cfg *RemotingConfig) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	// MaxElapsedTime defaults to 0 (retry until shutdown)
	if cfg.RequestsPerSecond > 0 && cfg.RequestBurst == 0 {
		cfg.RequestBurst = cfg.RequestsPerSecond * 2
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
