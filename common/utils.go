// Package common provides shared constants, types, and utilities
// used across the NWAM agent.
package common

import (
	"os"
	"path/filepath"
	"strings"
)

// GetConfigDir returns the path to the application configuration directory.
// It creates the directory if it doesn't exist.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", WrapError(err, "failed to get home directory")
	}

	configDir := filepath.Join(homeDir, ".config", ConfigDirName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", WrapError(err, "failed to create config directory")
	}

	return configDir, nil
}

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EqualStrings reports whether two slices hold the same strings in order.
func EqualStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IsReservedLocation reports whether name is one of the daemon-managed
// locations that users may not destroy.
func IsReservedLocation(name string) bool {
	switch name {
	case AutomaticLocation, NoNetLocation, LegacyLocation:
		return true
	}
	return false
}

// ValidObjectName reports whether name is acceptable as a daemon object name.
// The daemon rejects empty names and names containing the typed-name separator.
func ValidObjectName(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	return !strings.ContainsAny(name, ":\n")
}
