package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a config purely from environment variables, used when no
// config file is present. Endpoint URLs and the flush interval are read
// once at startup.
func FromEnv() *Config {
	cfg := &Config{}
	cfg.Instance.ID = os.Getenv("INSTANCE_ID")
	cfg.API.RestURL = os.Getenv("SCANNER_REST_URL")
	cfg.Stream.WSURL = os.Getenv("SCANNER_WS_URL")
	if v := os.Getenv("MERGE_FLUSH_INTERVAL_MS"); v != "" {
		var ms int
		if _, err := fmt.Sscanf(v, "%d", &ms); err == nil && ms > 0 {
			cfg.Merge.FlushInterval = msToDuration(ms)
		}
	}
	cfg.applyDefaults()
	return cfg
}
