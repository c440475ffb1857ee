package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is the name of the stepper configuration file.
const ConfigFileName = "stepper.toml"

// FindConfigFile returns the absolute path of the nearest stepper.toml at or
// above startDir, or "" when no ancestor has one.
func FindConfigFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// LoadFromFile decodes the stepper.toml at path. The returned metadata
// reports unknown keys through Undecoded().
func LoadFromFile(path string) (*Config, toml.MetaData, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("loading config %s: %w", path, err)
	}
	cfg, md, err := decode(string(content))
	if err != nil {
		return nil, md, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, md, nil
}

// LoadFromString decodes TOML content held in memory.
func LoadFromString(content string) (*Config, toml.MetaData, error) {
	cfg, md, err := decode(content)
	if err != nil {
		return nil, md, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, md, nil
}

func decode(content string) (*Config, toml.MetaData, error) {
	var cfg Config
	md, err := toml.Decode(content, &cfg)
	if err != nil {
		var perr toml.ParseError
		if errors.As(err, &perr) {
			return nil, md, fmt.Errorf("line %d: %s", perr.Position.Line, perr.Message)
		}
		return nil, md, err
	}
	return &cfg, md, nil
}
