package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const sampleHeader = `# Playground Configuration File
#
# Environment variables override every value below, e.g.
#   PLAYGROUND_LOGGING_LEVEL=DEBUG
#   PLAYGROUND_PLAYGROUND_COLLISION_POLICY=first-wins
#
# The data source settings (mount-path, playground-folder) are sent by the
# host with setContext and are not part of this file.

`

var sectionComments = map[string]string{
	"logging":    "Log output: level DEBUG|INFO|WARN|ERROR, format text|json, output stdout|stderr|<file>",
	"metrics":    "Prometheus endpoint served at http://0.0.0.0:<port>/metrics when enabled",
	"playground": "Mount table policy for owners with overlapping prefixes: reject|first-wins|coexist",
	"remoting":   "Connection to the host; the dial is retried with exponential backoff\nfor at most max_elapsed_time (0 = until shutdown). requests_per_second\nthrottles host requests (0 = unlimited)",
}

// sampleRemoting renders durations as "10s" instead of nanoseconds.
type sampleRemoting struct {
	DialTimeout       string `yaml:"dial_timeout"`
	MaxElapsedTime    string `yaml:"max_elapsed_time"`
	RequestsPerSecond uint   `yaml:"requests_per_second"`
	RequestBurst      uint   `yaml:"request_burst"`
}

type sampleConfig struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Playground PlaygroundConfig `yaml:"playground"`
	Remoting   sampleRemoting   `yaml:"remoting"`
}

// InitConfig writes a sample configuration to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration to path, creating parent
// directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use force to overwrite)", path)
		}
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateYAMLWithComments renders cfg as YAML with a comment above every
// top-level section.
func generateYAMLWithComments(cfg *Config) (string, error) {
	sample := sampleConfig{
		Logging:    cfg.Logging,
		Metrics:    cfg.Metrics,
		Playground: cfg.Playground,
		Remoting: sampleRemoting{
			DialTimeout:       cfg.Remoting.DialTimeout.String(),
			MaxElapsedTime:    cfg.Remoting.MaxElapsedTime.String(),
			RequestsPerSecond: cfg.Remoting.RequestsPerSecond,
			RequestBurst:      cfg.Remoting.RequestBurst,
		},
	}

	var doc yaml.Node
	if err := doc.Encode(sample); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		if comment, ok := sectionComments[key.Value]; ok {
			key.HeadComment = comment
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}

	return sampleHeader + buf.String(), nil
}
