// Package common provides shared constants, types, and utilities
// used across the NWAM agent.
package common

import "time"

// Application metadata.
const (
	// AppID is the unique identifier for the application.
	AppID = "org.opensolaris.nwam.agent"
	// AppName is the display name of the application.
	AppName = "Network Agent"
	// ConfigDirName is the name of the configuration directory.
	ConfigDirName = "nwam-agent"
)

// File names used by the application.
const (
	ConfigFileName      = "config.yaml"
	CredentialsFileName = ".wifi-keys"
	LogFileName         = "nwam-agent.log"
)

// Default timeouts and intervals.
const (
	// ConnectRetryInterval is the first delay between attempts to reach a daemon
	// whose service is not online yet.
	ConnectRetryInterval = 2 * time.Second
	// ConnectRetryMax caps the exponential connect backoff.
	ConnectRetryMax = 30 * time.Second
	// ReconnectInterval is the sleep between reconnect attempts after the
	// event stream broke.
	ReconnectInterval = 5 * time.Second
	// CallTimeout bounds a single synchronous daemon call.
	CallTimeout = 10 * time.Second
	// QueueWarnDepth is the event queue depth above which the listener warns
	// that the dispatcher is falling behind.
	QueueWarnDepth = 256
	// QueueCapacity bounds the event queue. The listener waits when it is
	// full.
	QueueCapacity = 4096
)

// Reserved object names understood by the daemon.
const (
	// AutomaticProfile is the daemon-managed profile; it is also the source of
	// the WiFi favorites list.
	AutomaticProfile = "Automatic"
	// AutomaticLocation is the location chosen when nothing else applies.
	AutomaticLocation = "Automatic"
	// NoNetLocation is the pseudo-location active while no network is up.
	NoNetLocation = "NoNet"
	// LegacyLocation holds configuration imported from the pre-NWAM setup.
	LegacyLocation = "Legacy"
)

// D-Bus defaults for the daemon bridge.
const (
	DefaultBusName    = "system"
	DefaultService    = "org.opensolaris.nwam1"
	DefaultObjectPath = "/org/opensolaris/nwam1"
)
