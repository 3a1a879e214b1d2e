// Package common provides shared constants, types, utilities, and interfaces
// used throughout the NWAM agent.
//
// This package serves as the foundation for cross-cutting concerns:
//
//   - Constants: Application-wide constants like retry intervals, reserved object names
//   - Errors: Sentinel errors for consistent error handling across packages
//   - Interfaces: Abstractions for logging, notification sinks and secret storage
//   - Logger: Levelled logging with file output and rotation
//   - Utils: Common utility functions for file operations and string manipulation
//
// # Usage
//
// Import the package to access shared functionality:
//
//	import "github.com/yllada/nwam-agent/common"
//
//	// Use logger
//	common.LogInfo("Daemon reported %d profiles", n)
//
//	// Check errors
//	if errors.Is(err, common.ErrObjectNotFound) {
//	    // Handle missing object
//	}
package common
