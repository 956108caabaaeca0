// Package paths provides centralized path resolution for parrot.
// This package has NO internal imports (only stdlib) to avoid import cycles.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigNames are the config file names searched for, in priority order.
var ConfigNames = []string{"parrot.yaml", "parrot.yml", "parrot.toml", "parrot.json"}

// BaseDir returns the parrot base directory (~/.parrot).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".parrot"), nil
}

// DataPath returns a path within the parrot data directory (~/.parrot/<subpath>).
func DataPath(subpath string) (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, subpath), nil
}

// ConfigPath returns the active config path.
// Priority: ./parrot.{yaml,yml,toml,json} > ~/.parrot/parrot.{...}
// Returns ("", nil) if no config exists.
func ConfigPath() (string, error) {
	for _, name := range ConfigNames {
		if _, err := os.Stat(name); err == nil {
			abs, err := filepath.Abs(name)
			if err != nil {
				return "", fmt.Errorf("failed to get absolute path: %w", err)
			}
			return abs, nil
		}
	}

	for _, name := range ConfigNames {
		global, err := DataPath(name)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// DefaultConfigPath returns the default location for new configs (~/.parrot/parrot.yaml).
func DefaultConfigPath() (string, error) {
	return DataPath(ConfigNames[0])
}

// UsersPath returns the user registry path next to the config file.
// If configPath is empty, returns the default location.
func UsersPath(configPath, name string) (string, error) {
	if configPath == "" {
		return DataPath(name)
	}
	return filepath.Join(filepath.Dir(configPath), name), nil
}

// EnsureParentDir creates the parent directory of a file path if it doesn't exist.
func EnsureParentDir(filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// ExpandTilde expands a path that starts with ~ to the user's home directory.
func ExpandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if len(path) == 1 {
		return home, nil
	}
	return filepath.Join(home, path[1:]), nil
}
