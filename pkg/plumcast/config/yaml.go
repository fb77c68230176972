package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a ServiceConfig from a YAML file at path,
// applying defaults and validating the result. Grounded on
// shurlinet-shurli's internal/config/loader.go Load: read the whole
// file, unmarshal into the raw struct, fill defaults, validate.
func Load(path string) (ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ServiceConfig{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg ServiceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ServiceConfig{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return ServiceConfig{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// MustLoad is Load for callers that treat a bad config file as fatal at
// startup. cmd/plumcastd does not use it; the demo is configured by
// command-line flags.
func MustLoad(path string) ServiceConfig {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
