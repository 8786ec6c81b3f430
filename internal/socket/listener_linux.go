//go:build linux

package socket

import (
	"fmt"
	"syscall"
)

// peerCredentialsPlatform reads peer credentials via Linux SO_PEERCRED.
func peerCredentialsPlatform(fd int) (*ucred, error) {
	cred, err := syscall.GetsockoptUcred(fd, syscall.SOL_SOCKET, syscall.SO_PEERCRED)
	if err != nil {
		return nil, fmt.Errorf("SO_PEERCRED failed: %w", err)
	}
	return &ucred{PID: cred.Pid, UID: cred.Uid, GID: cred.Gid}, nil
}
