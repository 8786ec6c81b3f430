//go:build windows

package socket

import (
	"context"
	"fmt"
	"net"
	"strings"

	winio "github.com/Microsoft/go-winio"
)

// CreateDialer creates a DialContext function for the control endpoint. For
// non-pipe endpoints it returns a nil dialer and the endpoint unchanged so
// callers fall back to plain TCP.
func CreateDialer(endpoint string) (func(context.Context, string, string) (net.Conn, error), string, error) {
	if !strings.HasPrefix(endpoint, "npipe://") {
		return nil, endpoint, nil
	}

	pipePath := extractPipePath(endpoint)
	if pipePath == "" {
		return nil, "", fmt.Errorf("invalid named pipe path in endpoint: %s", endpoint)
	}

	dialer := func(ctx context.Context, _, _ string) (net.Conn, error) {
		return winio.DialPipeContext(ctx, pipePath)
	}

	// The base URL host is never resolved; the dialer ignores it.
	return dialer, "http://localhost", nil
}

// extractPipePath converts an npipe:// endpoint to a Windows pipe path.
func extractPipePath(endpoint string) string {
	pipePath, ok := strings.CutPrefix(endpoint, "npipe://")
	if !ok {
		return ""
	}
	return normalizePipePath(strings.TrimLeft(pipePath, "/"))
}

// normalizePipePath restores the //./pipe/ prefix that endpoint parsing may
// have stripped.
func normalizePipePath(pipePath string) string {
	switch {
	case strings.HasPrefix(pipePath, `\\.\`), strings.HasPrefix(pipePath, "//./"):
		return pipePath
	case strings.HasPrefix(pipePath, "./pipe/"):
		return "//" + pipePath
	case strings.HasPrefix(pipePath, "pipe/"):
		return "//./" + pipePath
	default:
		return "//./pipe/" + pipePath
	}
}
