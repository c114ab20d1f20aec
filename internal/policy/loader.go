package policy

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a policy document from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, errors.New("unsupported policy version")
	}

	if cfg.Controls == nil {
		cfg.Controls = make(map[string]ControlConfig)
	}

	return &cfg, nil
}

// Default returns the policy used when no document is supplied: everything
// enabled, no overrides, no enforcement thresholds.
func Default() *Config {
	return &Config{
		Version:  1,
		Controls: make(map[string]ControlConfig),
	}
}
