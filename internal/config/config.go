// Package config loads tool configuration from an optional YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config carries the settings shared by the command-line tools. The
// template directory is explicit configuration threaded into store
// construction; nothing reads it from a package-level default.
type Config struct {
	TemplateDir    string  `yaml:"template_dir"`
	Strategy       string  `yaml:"strategy"`
	Workers        int     `yaml:"workers"`
	HighConfidence float64 `yaml:"high_confidence"`
	LedgerPath     string  `yaml:"ledger_path"` // empty disables the ledger

	// Pipeline tuning. Zero values fall back to the capture defaults.
	NoiseThreshold   int `yaml:"noise_threshold"`
	MinComponentSize int `yaml:"min_component_size"`
}

// Load reads path (missing file is fine: defaults apply), applies env
// overrides, then defaults, then validates.
func Load(path string) (Config, error) {
	var cfg Config

	if envPath := os.Getenv("CAPTCHA_CONFIG"); envPath != "" {
		path = envPath
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("failed to read %s: %w", path, err)
	}

	envOverride(&cfg.TemplateDir, "CAPTCHA_TEMPLATE_DIR")
	envOverride(&cfg.Strategy, "CAPTCHA_STRATEGY")
	envOverride(&cfg.LedgerPath, "CAPTCHA_LEDGER")
	if err := envOverrideInt(&cfg.Workers, "CAPTCHA_WORKERS"); err != nil {
		return cfg, err
	}

	if cfg.TemplateDir == "" {
		cfg.TemplateDir = "captcha_templates"
	}
	if cfg.Strategy == "" {
		cfg.Strategy = "balanced"
	}
	if cfg.Workers == 0 {
		cfg.Workers = 4
	}
	if cfg.HighConfidence == 0 {
		cfg.HighConfidence = 0.9
	}
	if cfg.MinComponentSize == 0 {
		cfg.MinComponentSize = 8
	}

	if cfg.Workers < 1 {
		return cfg, fmt.Errorf("workers must be >= 1, got %d", cfg.Workers)
	}
	if cfg.HighConfidence < 0 || cfg.HighConfidence > 1 {
		return cfg, fmt.Errorf("high_confidence must be in [0,1], got %g", cfg.HighConfidence)
	}
	return cfg, nil
}

func envOverride(field *string, key string) {
	if v := os.Getenv(key); v != "" {
		*field = v
	}
}

func envOverrideInt(field *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*field = parsed
	return nil
}
