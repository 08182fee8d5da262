package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"chatd/internal/common/fsutil"
)

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml. Defaults are not applied.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("config: empty config path")
	}
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("config: unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("config: decode %s: %w", filepath.Base(p), err)
	}
	return cfg, nil
}

// Resolve loads path (when non-empty), overlays the environment, applies
// defaults and validates the result.
func Resolve(path string) (Config, error) {
	var cfg Config
	if path != "" {
		c, err := Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = c
	} else {
		cfg.HealthInterval = DefaultHealthInterval
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}
