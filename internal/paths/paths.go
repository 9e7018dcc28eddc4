// Package paths resolves the docstore configuration and data directories and
// the default database location derived from them.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// appName is the directory created under the platform config and data roots.
const appName = "docstore"

// DatabaseFileName is the SQLite file used when no descriptor is configured.
const DatabaseFileName = "docstore.db"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "DOCSTORE_CONFIG_DIR"
	EnvDataDir   = "DOCSTORE_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/docstore (fallback ~/.config/docstore)
// macOS:   ~/Library/Application Support/docstore
// Windows: %APPDATA%/docstore
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/docstore (fallback ~/.local/share/docstore)
// macOS:   ~/Library/Application Support/docstore
// Windows: %APPDATA%/docstore
func DefaultDataDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	}
	// macOS and Windows keep data next to the config.
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

func xdgDir(env, homeRel string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeRel, appName), nil
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > DOCSTORE_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configYAMLValue > DOCSTORE_DATA_DIR env > DefaultDataDir().
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultDataDir()
}

// DefaultDatabaseURI returns the SQLite descriptor for the database file in
// dataDir.
func DefaultDatabaseURI(dataDir string) string {
	return "sqlite://" + filepath.ToSlash(filepath.Join(dataDir, DatabaseFileName))
}
