package main

import (
	"errors"
	"net"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrejvysny/open-webui-desktop/internal/cli/output"
	"github.com/andrejvysny/open-webui-desktop/internal/cliclient"
)

func TestCliErrorAppendsCorrelationID(t *testing.T) {
	apiErr := &cliclient.APIError{
		Status:        500,
		Code:          "launch_error",
		Message:       "spawn failed",
		CorrelationID: "req-abc123",
	}

	err := cliError("failed to start server", apiErr)
	assert.Contains(t, err.Error(), "failed to start server")
	assert.Contains(t, err.Error(), "spawn failed")
	assert.Contains(t, err.Error(), "correlation_id: req-abc123")
}

func TestCliErrorKeepsChainForExitCodes(t *testing.T) {
	apiErr := &cliclient.APIError{
		Status:        500,
		Code:          "reachability_timeout",
		Message:       "server never became reachable",
		CorrelationID: "req-xyz",
	}

	wrapped := cliError("failed to start server", apiErr)

	var unwrapped *cliclient.APIError
	assert.True(t, errors.As(wrapped, &unwrapped), "wrapping must preserve the APIError in the chain")
	assert.Equal(t, ExitCodeServerError, exitCodeForError(wrapped))
}

func TestCliErrorWithoutCorrelationID(t *testing.T) {
	err := cliError("failed to fetch runs", errors.New("connection reset"))
	assert.Equal(t, "failed to fetch runs: connection reset", err.Error())
}

func TestStructuredErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "daemon classified config error",
			err:  &cliclient.APIError{Status: 400, Code: "config_error", Message: "bad listen address"},
			want: output.ErrCodeConfigInvalid,
		},
		{
			name: "daemon origin rejection",
			err:  &cliclient.APIError{Status: 403, Code: "access_denied", Message: "origin not allowed"},
			want: output.ErrCodePermissionDenied,
		},
		{
			name: "daemon server-side failure",
			err:  &cliclient.APIError{Status: 500, Code: "launch_error", Message: "spawn failed"},
			want: output.ErrCodeOperationFailed,
		},
		{
			name: "no shell listening",
			err:  &net.OpError{Op: "dial", Err: errors.New("connection refused")},
			want: output.ErrCodeConnectionFailed,
		},
		{
			name: "wrapped dial failure",
			err:  cliError("failed to fetch runs", &net.OpError{Op: "dial", Err: errors.New("connection refused")}),
			want: output.ErrCodeConnectionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, structuredErrorCode(tt.err))
		})
	}
}

func TestOutputErrorKeepsErrorForExitCode(t *testing.T) {
	cmd := &cobra.Command{Use: "probe"}
	addOutputFlags(cmd)
	require.NoError(t, cmd.Flags().Set("output", "json"))

	apiErr := &cliclient.APIError{
		Status:        403,
		Code:          "access_denied",
		Message:       "origin not allowed",
		CorrelationID: "req-403",
	}
	got := outputError(cmd, cliError("failed to query server status", apiErr))

	var unwrapped *cliclient.APIError
	assert.True(t, errors.As(got, &unwrapped), "structured rendering must not lose the APIError")
	assert.Equal(t, ExitCodeAccessDenied, exitCodeForError(got))
}

func TestOutputErrorTableFormatPassesThrough(t *testing.T) {
	cmd := &cobra.Command{Use: "probe"}
	addOutputFlags(cmd)

	original := cliError("failed to fetch runs", errors.New("boom"))
	assert.Equal(t, original, outputError(cmd, original))
}
