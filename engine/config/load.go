package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML (.yml, .yaml) or TOML (.toml) file. Fields absent from the file keep
// their Default value. The result is validated before it is returned.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - Config: the loaded settings
//   - error: a read, decode or validation error
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(filepath.Ext(path), data)
}

// Parse decodes data in the format named by ext (".yaml", ".yml" or ".toml") on top of Default.
// A quality preset named in data is applied first and the remaining keys on top of it.
func Parse(ext string, data []byte) (Config, error) {
	var decode func(*Config) error
	switch strings.ToLower(ext) {
	case ".yml", ".yaml":
		decode = func(cfg *Config) error {
			if len(bytes.TrimSpace(data)) == 0 {
				return nil
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return fmt.Errorf("config: decode yaml: %w", err)
			}
			return nil
		}
	case ".toml":
		decode = func(cfg *Config) error {
			if err := toml.Unmarshal(data, cfg); err != nil {
				return fmt.Errorf("config: decode toml: %w", err)
			}
			return nil
		}
	default:
		return Config{}, fmt.Errorf("%w: unsupported config extension %q", ErrInvalid, ext)
	}

	cfg := Default()
	if err := decode(&cfg); err != nil {
		return Config{}, err
	}
	if preset := cfg.Quality; preset != QualityCustom {
		cfg = Default()
		preset.Apply(&cfg)
		if err := decode(&cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
