package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeDirName is the per-project state directory holding config.yaml,
// logs, the browser profile and the history database.
const HomeDirName = ".gencompare"

// HomeEnv overrides the state directory location.
const HomeEnv = "GENCOMPARE_HOME"

// Home returns the state directory.
// Priority order:
//  1. GENCOMPARE_HOME environment variable (if set)
//  2. .gencompare under the current working directory
//
// The directory is created if it doesn't exist.
func Home() (string, error) {
	home := os.Getenv(HomeEnv)
	if home == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		home = filepath.Join(cwd, HomeDirName)
	}

	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create home directory: %w", err)
	}
	return home, nil
}

// DefaultConfigPath returns <home>/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "config.yaml"), nil
}
