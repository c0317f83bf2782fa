// Package paths resolves the configuration and data directory locations
// used by the retrace CLI. Each directory follows a precedence chain:
// explicit flag, then environment variable, then a platform default.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// CWD-relative directory names.
const (
	DefaultConfigDirName = ".retrace"
	DefaultDataDirName   = ".retrace-db"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "RETRACE_CONFIG_DIR"
	EnvDataDir   = "RETRACE_DATA_DIR"
)

// DefaultConfigDir returns the platform-specific default configuration
// directory.
//
// Linux:   $XDG_CONFIG_HOME/retrace (fallback ~/.config/retrace)
// macOS:   ~/Library/Application Support/retrace
// Windows: %APPDATA%/retrace
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "retrace"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "retrace"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "retrace"), nil
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/retrace (fallback ~/.local/share/retrace)
// macOS:   ~/Library/Application Support/retrace
// Windows: %APPDATA%/retrace
func DefaultDataDir() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "retrace"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", "retrace"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "retrace"), nil
}

// ResolveConfigDir returns the configuration directory: the flag when
// non-empty, then RETRACE_CONFIG_DIR, then the platform default.
// Relative overrides become absolute.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory: the flag when non-empty,
// then the config file value, then RETRACE_DATA_DIR, then a CWD-relative
// default ($(CWD)/.retrace-db). Relative overrides become absolute.
func ResolveDataDir(flag, configValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}
