// Package storage persists engine options, perft counts and analysis
// results in a badger database.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog/log"
)

const appName = "chesscore"

// dataBase picks the per-user data root for goos. Environment overrides
// come first: APPDATA on Windows, XDG_DATA_HOME elsewhere except macOS.
func dataBase(goos string, getenv func(string) string, home func() (string, error)) (string, error) {
	var env string
	var fallback []string
	switch goos {
	case "darwin":
		fallback = []string{"Library", "Application Support"}
	case "windows":
		env, fallback = "APPDATA", []string{"AppData", "Roaming"}
	default:
		env, fallback = "XDG_DATA_HOME", []string{".local", "share"}
	}
	if env != "" {
		if dir := getenv(env); dir != "" {
			return dir, nil
		}
	}
	h, err := home()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(append([]string{h}, fallback...)...), nil
}

// GetDataDir returns the application data directory, creating it if needed.
func GetDataDir() (string, error) {
	base, err := dataBase(runtime.GOOS, os.Getenv, os.UserHomeDir)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// GetDatabaseDir returns the default badger directory inside GetDataDir.
func GetDatabaseDir() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(dataDir, "db")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	log.Debug().Str("dir", dir).Msg("database directory")
	return dir, nil
}
