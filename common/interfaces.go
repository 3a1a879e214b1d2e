// Package common provides shared constants, types, and utilities
// used across the NWAM agent.
package common

// CredentialStore defines the interface for WiFi key storage.
// Implementations may use system keyring, encrypted files, etc.
type CredentialStore interface {
	// Store saves the key for a wireless network.
	Store(essid, key string) error
	// Get retrieves the key for a wireless network.
	Get(essid string) (string, error)
	// Delete removes the key for a wireless network.
	Delete(essid string) error
}

// Notifier defines the interface for sending desktop notifications.
type Notifier interface {
	// Notify sends a notification with the given title and message.
	Notify(title, message string) error
	// NotifyWithIcon sends a notification with a custom icon.
	NotifyWithIcon(title, message, icon string) error
}

// Logger defines the interface for levelled logging.
type Logger interface {
	// Debug logs a debug message.
	Debug(msg string, args ...interface{})
	// Info logs an informational message.
	Info(msg string, args ...interface{})
	// Warn logs a warning message.
	Warn(msg string, args ...interface{})
	// Error logs an error message.
	Error(msg string, args ...interface{})
}
