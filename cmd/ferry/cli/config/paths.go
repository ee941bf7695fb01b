// Package config provides configuration management for the ferry CLI.
package config

import (
	"os"
	"path/filepath"
)

// CacheDir returns the ferry cache directory.
// Uses XDG_CACHE_HOME/ferry, defaulting to ~/.cache/ferry.
func CacheDir() (string, error) {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// Dir returns the ferry config directory.
// Uses XDG_CONFIG_HOME/ferry, defaulting to ~/.config/ferry.
func Dir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// StagingDir returns the default directory for staged downloads.
func StagingDir() (string, error) {
	cache, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cache, "staging"), nil
}

func xdgDir(env, fallback string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	return filepath.Join(base, "ferry"), nil
}
