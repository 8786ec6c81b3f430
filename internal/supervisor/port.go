package supervisor

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/andrejvysny/open-webui-desktop/internal/contracts"
)

// PickPort reserves a port for the server. A preferred port that is already
// taken is an error, not a fallback: the user asked for that port. With no
// preference the OS assigns a free one.
func PickPort(preferred *int) (int, error) {
	if preferred != nil {
		addr := fmt.Sprintf("127.0.0.1:%d", *preferred)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return 0, contracts.LaunchError(fmt.Sprintf("preferred port %d is not available", *preferred), err)
		}
		ln.Close()
		return *preferred, nil
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, contracts.LaunchError("no free port available", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port, nil
}

// waitPortReleased polls until nothing accepts connections on the port
// anymore, which is the guarantee Stop gives its callers.
func waitPortReleased(ctx context.Context, port int, bound time.Duration) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	deadline := time.Now().Add(bound)

	for {
		conn, err := net.DialTimeout("tcp", addr, 250*time.Millisecond)
		if err != nil {
			return nil // Connection refused, the port is free
		}
		conn.Close()

		if time.Now().After(deadline) {
			return fmt.Errorf("port %d still accepting connections", port)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
