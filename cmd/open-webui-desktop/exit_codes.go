package main

import (
	"errors"
	"net"

	"github.com/andrejvysny/open-webui-desktop/internal/cliclient"
)

// Exit codes for open-webui-desktop so wrappers and launchers can react to
// specific failures.

const (
	// ExitCodeSuccess indicates normal program termination
	ExitCodeSuccess = 0

	// ExitCodeGeneralError indicates a generic error (default)
	ExitCodeGeneralError = 1

	// ExitCodeUnreachable indicates no running shell answered on the control endpoint
	ExitCodeUnreachable = 2

	// ExitCodeConfigError indicates configuration validation or persistence failed
	ExitCodeConfigError = 4

	// ExitCodeAccessDenied indicates the control surface refused the caller's origin
	ExitCodeAccessDenied = 5

	// ExitCodeServerError indicates a launch, shutdown, or reachability failure
	ExitCodeServerError = 6
)

// exitCodeForError maps an error to the process exit code.
func exitCodeForError(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var apiErr *cliclient.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "config_error":
			return ExitCodeConfigError
		case "access_denied":
			return ExitCodeAccessDenied
		case "launch_error", "shutdown_timeout", "reachability_timeout", "reset_error":
			return ExitCodeServerError
		}
		return ExitCodeGeneralError
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ExitCodeUnreachable
	}

	return ExitCodeGeneralError
}
