// Package config provides configuration management for the NWAM agent.
// It handles loading, saving, and validating agent settings.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/yllada/nwam-agent/common"
	"gopkg.in/yaml.v3"
)

// Config represents the agent configuration.
// All settings are persisted to a YAML file in the user's config directory.
type Config struct {
	Daemon        DaemonConfig        `yaml:"daemon"`
	Listener      ListenerConfig      `yaml:"listener"`
	WiFi          WiFiConfig          `yaml:"wifi"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Log           LogConfig           `yaml:"log"`
}

// DaemonConfig selects how the daemon bridge is reached.
type DaemonConfig struct {
	// Bus is "system" or "session".
	Bus string `yaml:"bus"`
	// Service is the well-known bus name owned by the daemon.
	Service string `yaml:"service"`
	// ObjectPath is the daemon's manager object.
	ObjectPath string `yaml:"object_path"`
	// CallTimeout bounds every synchronous daemon call.
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// ListenerConfig tunes the background event listener.
type ListenerConfig struct {
	// ConnectRetryInterval is the first backoff step while the daemon service is not online.
	ConnectRetryInterval time.Duration `yaml:"connect_retry_interval"`
	// ConnectRetryMax caps the backoff.
	ConnectRetryMax time.Duration `yaml:"connect_retry_max"`
	// ReconnectInterval is the sleep between reconnect attempts after the stream broke.
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	// ReconnectAttempts bounds reconnect attempts (0 = unlimited).
	ReconnectAttempts int `yaml:"reconnect_attempts"`
	// QueueWarnDepth is the queue depth that triggers a backlog warning.
	QueueWarnDepth int `yaml:"queue_warn_depth"`
}

// WiFiConfig controls WiFi key handling.
type WiFiConfig struct {
	// RememberKeys stores keys supplied by the user in the keyring.
	RememberKeys bool `yaml:"remember_keys"`
	// AutoSupplyKeys answers a need-key request from the keyring instead of
	// asking the user.
	AutoSupplyKeys bool `yaml:"auto_supply_keys"`
}

// NotificationsConfig controls desktop notifications.
type NotificationsConfig struct {
	Enabled       bool `yaml:"enabled"`
	StatusChanges bool `yaml:"status_changes"`
	DaemonInfo    bool `yaml:"daemon_info"`
}

// LogConfig controls logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// File enables file logging under the config directory.
	File bool `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Daemon: DaemonConfig{
			Bus:         common.DefaultBusName,
			Service:     common.DefaultService,
			ObjectPath:  common.DefaultObjectPath,
			CallTimeout: common.CallTimeout,
		},
		Listener: ListenerConfig{
			ConnectRetryInterval: common.ConnectRetryInterval,
			ConnectRetryMax:      common.ConnectRetryMax,
			ReconnectInterval:    common.ReconnectInterval,
			ReconnectAttempts:    0,
			QueueWarnDepth:       common.QueueWarnDepth,
		},
		WiFi: WiFiConfig{
			RememberKeys:   true,
			AutoSupplyKeys: false,
		},
		Notifications: NotificationsConfig{
			Enabled:       true,
			StatusChanges: true,
			DaemonInfo:    false,
		},
		Log: LogConfig{
			Level: "info",
			File:  true,
		},
	}
}

// Load loads the configuration from the default config file.
// If the file doesn't exist, it creates one with default values.
func Load() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.SaveTo(configPath); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads the configuration from path.
// Fields missing from the file keep their default values.
func LoadFromPath(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfigLoad, err)
	}
	defer file.Close()

	return decode(file)
}

func decode(r io.Reader) (*Config, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true) // Strict validation: reject unknown fields

	config := DefaultConfig()
	if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: error parsing configuration: %v", common.ErrConfigLoad, err)
	}

	config.validate()
	return config, nil
}

// validate replaces unusable values with defaults.
func (c *Config) validate() {
	def := DefaultConfig()

	if c.Daemon.Bus != "system" && c.Daemon.Bus != "session" {
		common.LogWarn("config: unknown bus %q, using %q", c.Daemon.Bus, def.Daemon.Bus)
		c.Daemon.Bus = def.Daemon.Bus
	}
	if c.Daemon.Service == "" {
		c.Daemon.Service = def.Daemon.Service
	}
	if c.Daemon.ObjectPath == "" {
		c.Daemon.ObjectPath = def.Daemon.ObjectPath
	}
	if c.Daemon.CallTimeout <= 0 {
		c.Daemon.CallTimeout = def.Daemon.CallTimeout
	}

	if c.Listener.ConnectRetryInterval <= 0 {
		c.Listener.ConnectRetryInterval = def.Listener.ConnectRetryInterval
	}
	if c.Listener.ConnectRetryMax < c.Listener.ConnectRetryInterval {
		c.Listener.ConnectRetryMax = c.Listener.ConnectRetryInterval
	}
	if c.Listener.ReconnectInterval <= 0 {
		c.Listener.ReconnectInterval = def.Listener.ReconnectInterval
	}
	if c.Listener.ReconnectAttempts < 0 {
		c.Listener.ReconnectAttempts = 0
	}
	if c.Listener.QueueWarnDepth <= 0 {
		c.Listener.QueueWarnDepth = def.Listener.QueueWarnDepth
	}

	if _, ok := common.ParseLogLevel(c.Log.Level); !ok {
		common.LogWarn("config: unknown log level %q, using %q", c.Log.Level, def.Log.Level)
		c.Log.Level = def.Log.Level
	}

	// Auto-supplying keys needs them to be stored in the first place
	if c.WiFi.AutoSupplyKeys && !c.WiFi.RememberKeys {
		c.WiFi.AutoSupplyKeys = false
	}
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() common.LogLevel {
	level, _ := common.ParseLogLevel(c.Log.Level)
	return level
}

// Save saves the configuration to the default file.
func (c *Config) Save() error {
	configPath, err := getConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(configPath)
}

// SaveTo saves the configuration to path.
func (c *Config) SaveTo(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("%w: error creating config directory: %v", common.ErrConfigSave, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("%w: error serializing configuration: %v", common.ErrConfigSave, err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("%w: error saving configuration: %v", common.ErrConfigSave, err)
	}

	return nil
}

func getConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error getting home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", common.ConfigDirName, common.ConfigFileName), nil
}
