// Package config provides configuration management for the staging tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rescale/rescale-staging/internal/constants"
)

// ConfigDirectory returns the platform-appropriate config directory.
//   - Windows: %APPDATA%\rescale-staging
//   - Unix: ~/.config/rescale-staging
func ConfigDirectory() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", errors.New("APPDATA environment variable not set")
		}
		return filepath.Join(appData, constants.ConfigDirName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", constants.ConfigDirName), nil
}

// DefaultConfigPath returns the default path of the INI config file.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.ConfigFileName), nil
}

// DefaultDataDirectory is where local staging directories live when
// [staging] data_dir is not set.
func DefaultDataDirectory() string {
	if dir, err := ConfigDirectory(); err == nil {
		return filepath.Join(dir, "data")
	}
	return filepath.Join(os.TempDir(), constants.AppName)
}
