// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "cbusstat"
	configFile = "config.yaml"
)

// DefaultPath returns the OS-appropriate configuration file path:
//   - Linux: $XDG_CONFIG_HOME/cbusstat/config.yaml or $HOME/.config/cbusstat/config.yaml
//   - macOS: $HOME/.config/cbusstat/config.yaml
//   - Windows: %LOCALAPPDATA%\cbusstat\config.yaml
func DefaultPath() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			return "", fmt.Errorf("cannot determine configuration directory (LOCALAPPDATA not set)")
		}
		baseDir = localAppData

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" && runtime.GOOS != "darwin" {
			baseDir = xdg
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(baseDir, appName, configFile), nil
}

// Load reads, validates and normalizes the file at path. Values missing
// from the file keep their defaults. A missing file returns an error
// matching os.ErrNotExist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration over the defaults
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	Normalize(cfg)
	return cfg, nil
}

// LoadOrDefault loads path, or the default path when path is empty.
// A missing default file yields Default().
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}

	defaultPath, err := DefaultPath()
	if err != nil {
		return Default(), nil
	}
	cfg, err := Load(defaultPath)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}
