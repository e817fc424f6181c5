package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDirName     = "roomcal"
	serverConfigFile  = "config.yaml"
	sessionFile       = "session.json"
	configDirPermMode = 0o700
)

// GetConfigDir returns the configuration directory path (~/.config/roomcal)
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", configDirName), nil
}

// GetServerConfigPath returns the default server config path.
func GetServerConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, serverConfigFile), nil
}

// GetSessionPath returns the path to the client session file
func GetSessionPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, sessionFile), nil
}
