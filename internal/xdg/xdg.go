// Package xdg provides XDG Base Directory paths for caphost.
package xdg

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "caphost"

// PluginDirEnv overrides the plugin root directory when set.
const PluginDirEnv = "CAPHOST_PLUGIN_DIR"

// ConfigDir returns the XDG config directory for caphost.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// DataDir returns the XDG data directory for caphost.
// Checks XDG_DATA_HOME first, falls back to ~/.local/share.
func DataDir() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".local", "share")
	}
	return filepath.Join(base, appName)
}

// PluginDir returns the plugin root directory. The CAPHOST_PLUGIN_DIR
// environment variable wins; otherwise plugins live under the data
// directory.
func PluginDir() string {
	if dir := os.Getenv(PluginDirEnv); dir != "" {
		return dir
	}
	return filepath.Join(DataDir(), "plugins")
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
