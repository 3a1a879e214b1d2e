// Package common provides shared constants, types, and utilities
// used across the NWAM agent.
package common

import "errors"

// Sentinel errors for agent operations.
// These can be checked with errors.Is() for proper error handling.
var (
	// Daemon transport errors.
	ErrDaemonUnavailable = errors.New("network daemon unavailable")
	ErrNotConnected      = errors.New("not connected to network daemon")
	ErrTimeout           = errors.New("operation timed out")
	ErrCancelled         = errors.New("operation cancelled")
	ErrListenerStopped   = errors.New("event listener stopped")

	// Object model errors.
	ErrObjectNotFound   = errors.New("object not found")
	ErrDuplicateName    = errors.New("object name already exists")
	ErrInvalidName      = errors.New("invalid object name")
	ErrReservedObject   = errors.New("operation not permitted on reserved object")
	ErrInvalidCondition = errors.New("invalid condition")
	ErrNoValue          = errors.New("property has no value")
	ErrInvalidProperty  = errors.New("invalid property value")

	// Daemon action errors.
	ErrCommitFailed  = errors.New("commit failed")
	ErrEnableFailed  = errors.New("enable failed")
	ErrDisableFailed = errors.New("disable failed")
	ErrDestroyFailed = errors.New("destroy failed")

	// Credential errors.
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrCredentialStorage   = errors.New("failed to store credentials")

	// Configuration errors.
	ErrConfigLoad = errors.New("failed to load configuration")
	ErrConfigSave = errors.New("failed to save configuration")
)

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
