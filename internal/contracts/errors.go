package contracts

import (
	"errors"
	"fmt"
)

// Kind classifies an orchestrator error for API callers and logs.
type Kind string

const (
	// KindLaunch indicates the server process failed to start or bind.
	KindLaunch Kind = "launch_error"

	// KindShutdownTimeout indicates the server process did not exit within the grace period.
	KindShutdownTimeout Kind = "shutdown_timeout"

	// KindReachabilityTimeout indicates the probe bound elapsed without a successful probe.
	KindReachabilityTimeout Kind = "reachability_timeout"

	// KindAccessDenied indicates an origin gate rejection.
	KindAccessDenied Kind = "access_denied"

	// KindConfig indicates persisted configuration is unreadable or invalid.
	KindConfig Kind = "config_error"

	// KindReset indicates the external reset collaborator failed.
	KindReset Kind = "reset_error"

	// KindConcurrency indicates a control call was rejected because another is in flight.
	KindConcurrency Kind = "concurrency_error"
)

// Error is a classified orchestrator error. Supervisor and prober failures are
// wrapped into one of these at the orchestrator boundary so callers can match
// on Kind instead of parsing messages.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two classified errors by Kind so sentinel-style checks work with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// NewError creates a classified error wrapping an optional cause.
func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// LaunchError reports a failed process start.
func LaunchError(message string, err error) *Error {
	return NewError(KindLaunch, message, err)
}

// ShutdownTimeoutError reports a process that outlived the stop grace period.
func ShutdownTimeoutError(message string, err error) *Error {
	return NewError(KindShutdownTimeout, message, err)
}

// ReachabilityTimeoutError reports probing that never succeeded within its bound.
func ReachabilityTimeoutError(message string) *Error {
	return NewError(KindReachabilityTimeout, message, nil)
}

// AccessDeniedError reports an origin gate rejection.
func AccessDeniedError(message string) *Error {
	return NewError(KindAccessDenied, message, nil)
}

// ConfigError reports unreadable or invalid persisted configuration.
func ConfigError(message string, err error) *Error {
	return NewError(KindConfig, message, err)
}

// ResetError reports a failed application data reset.
func ResetError(message string, err error) *Error {
	return NewError(KindReset, message, err)
}

// ConcurrencyError reports a rejected concurrent control call.
func ConcurrencyError(message string) *Error {
	return NewError(KindConcurrency, message, nil)
}

// KindOf extracts the Kind from any error in the chain, or "" when unclassified.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
