// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Caphost Contributors

// Package config loads driver configuration from files, flags and the
// environment, in increasing order of precedence.
package config

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/caphost/caphost/internal/xdg"
)

// Config holds the driver's runtime settings.
type Config struct {
	// PluginDir is the root directory scanned for plugin manifests.
	PluginDir string `koanf:"plugin-dir"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log-level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log-format"`
	// StartTimeout bounds the wait for a plugin's readiness announcement.
	StartTimeout time.Duration `koanf:"start-timeout"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		PluginDir:    xdg.PluginDir(),
		LogLevel:     "info",
		LogFormat:    "text",
		StartTimeout: 30 * time.Second,
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// at path (when non-empty), then any changed flags.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
		}
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return cfg, nil
}
