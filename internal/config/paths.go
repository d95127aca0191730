package config

import (
	"os"
	"path/filepath"
)

// TheaterPath returns the root directory for theater data. It uses
// $THEATER_PATH if set, otherwise defaults to ~/.theater.
func TheaterPath() string {
	if v := os.Getenv("THEATER_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".theater")
	}
	return filepath.Join(home, ".theater")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(TheaterPath(), "config.jsonc")
}

// DotenvPath returns the path to the .env file.
func DotenvPath() string {
	return filepath.Join(TheaterPath(), ".env")
}
