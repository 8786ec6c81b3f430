//go:build !windows

package socket

import (
	"context"
	"fmt"
	"net"
	"strings"
)

// CreateDialer creates a DialContext function for the control endpoint. For
// non-socket endpoints it returns a nil dialer and the endpoint unchanged so
// callers fall back to plain TCP.
func CreateDialer(endpoint string) (func(context.Context, string, string) (net.Conn, error), string, error) {
	path, ok := strings.CutPrefix(endpoint, "unix://")
	if !ok {
		return nil, endpoint, nil
	}
	if path == "" {
		return nil, "", fmt.Errorf("invalid unix socket path in endpoint: %s", endpoint)
	}

	dialer := func(ctx context.Context, _, _ string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "unix", path)
	}

	// The base URL host is never resolved; the dialer ignores it.
	return dialer, "http://localhost", nil
}
