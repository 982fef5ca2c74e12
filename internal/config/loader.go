package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	configPathEnv     = "CONFIG_PATH"
	defaultConfigPath = "config.yaml"
)

// Load builds the analyzer configuration. Values come from env-default tags,
// then the YAML file named by CONFIG_PATH (or ./config.yaml when present),
// then environment variables. A CONFIG_PATH that points nowhere is an error;
// a missing ./config.yaml is not, so the CLI runs with env and defaults alone.
func Load() (*Config, error) {
	var cfg Config

	path, explicit := configPath()
	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("bik config: parse %s: %w", path, err)
		}
	case explicit || !errors.Is(statErr, fs.ErrNotExist):
		return nil, fmt.Errorf("bik config: %s=%s: %w", configPathEnv, path, statErr)
	default:
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("bik config: environment: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("bik config: %w", err)
	}
	return &cfg, nil
}

// configPath returns the YAML path to read and whether CONFIG_PATH named it.
func configPath() (string, bool) {
	if p := os.Getenv(configPathEnv); p != "" {
		return p, true
	}
	return defaultConfigPath, false
}
