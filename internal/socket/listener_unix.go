//go:build linux || darwin

package socket

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/transport"
)

// listenUnix creates a Unix domain socket listener with owner-only
// permissions and per-connection peer credential checks.
func listenUnix(socketPath string, logger *zap.Logger) (*Listener, error) {
	logger.Info("Creating Unix domain socket listener", zap.String("path", socketPath))

	if err := os.MkdirAll(filepath.Dir(socketPath), 0700); err != nil {
		return nil, fmt.Errorf("cannot create socket directory: %w", err)
	}

	if err := cleanupStaleSocket(socketPath, logger); err != nil {
		return nil, fmt.Errorf("cannot cleanup stale socket: %w", err)
	}

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("cannot create Unix socket: %w", err)
	}

	if err := os.Chmod(socketPath, 0600); err != nil {
		ln.Close()
		os.Remove(socketPath)
		return nil, fmt.Errorf("cannot set socket permissions: %w", err)
	}

	if err := verifySocketOwnership(socketPath); err != nil {
		ln.Close()
		os.Remove(socketPath)
		return nil, fmt.Errorf("socket ownership verification failed: %w", err)
	}

	return &Listener{
		Listener: &unixListener{Listener: ln, socketPath: socketPath, logger: logger},
		Source:   transport.ConnectionSourceSocket,
		Address:  socketPath,
	}, nil
}

// listenNamedPipe is not available on Unix systems.
func listenNamedPipe(string, *zap.Logger) (*Listener, error) {
	return nil, fmt.Errorf("named pipes are only supported on Windows")
}

// isPipeAvailable is not used on Unix systems.
func isPipeAvailable(string) bool {
	return false
}

// cleanupStaleSocket removes a socket file left behind by a crashed process.
// An answering socket means another shell instance owns the endpoint.
func cleanupStaleSocket(socketPath string, logger *zap.Logger) error {
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		return nil
	}

	conn, err := net.DialTimeout("unix", socketPath, 1*time.Second)
	if err == nil {
		conn.Close()
		return fmt.Errorf("socket is in use by another process")
	}

	logger.Info("Removing stale socket file", zap.String("path", socketPath))
	if err := os.Remove(socketPath); err != nil {
		return fmt.Errorf("cannot remove stale socket: %w", err)
	}
	return nil
}

func verifySocketOwnership(socketPath string) error {
	info, err := os.Stat(socketPath)
	if err != nil {
		return fmt.Errorf("cannot stat socket: %w", err)
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fmt.Errorf("cannot get socket ownership info")
	}
	if currentUID := uint32(os.Getuid()); stat.Uid != currentUID {
		return fmt.Errorf("socket not owned by current user (uid=%d, expected=%d)", stat.Uid, currentUID)
	}
	return nil
}

// unixListener removes the socket file on close and rejects connections
// from other users.
type unixListener struct {
	net.Listener
	socketPath string
	logger     *zap.Logger
}

func (ul *unixListener) Close() error {
	err := ul.Listener.Close()
	if removeErr := os.Remove(ul.socketPath); removeErr != nil && !os.IsNotExist(removeErr) {
		ul.logger.Warn("Failed to remove socket file",
			zap.Error(removeErr),
			zap.String("path", ul.socketPath))
	}
	return err
}

// Accept accepts the next same-user connection. Connections from another
// UID are closed and logged, and accepting continues.
func (ul *unixListener) Accept() (net.Conn, error) {
	for {
		conn, err := ul.Listener.Accept()
		if err != nil {
			return nil, err
		}

		cred, err := peerCredentials(conn)
		if err != nil {
			conn.Close()
			ul.logger.Warn("Cannot verify peer credentials", zap.Error(err))
			continue
		}

		if currentUID := uint32(os.Getuid()); cred.UID != currentUID {
			conn.Close()
			ul.logger.Warn("Rejected connection from different user",
				zap.Uint32("peer_uid", cred.UID),
				zap.Uint32("expected_uid", currentUID))
			continue
		}

		return conn, nil
	}
}

// ucred holds peer process credentials.
type ucred struct {
	PID int32
	UID uint32
	GID uint32
}

func peerCredentials(conn net.Conn) (*ucred, error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return nil, fmt.Errorf("not a Unix connection")
	}

	file, err := unixConn.File()
	if err != nil {
		return nil, fmt.Errorf("cannot get connection file descriptor: %w", err)
	}
	defer file.Close()

	return peerCredentialsPlatform(int(file.Fd()))
}
