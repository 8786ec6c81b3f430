//go:build darwin

package socket

import (
	"fmt"
	"syscall"
	"unsafe"
)

// peerCredentialsPlatform reads peer credentials via macOS LOCAL_PEERCRED.
func peerCredentialsPlatform(fd int) (*ucred, error) {
	// xucred structure from sys/ucred.h
	type xucred struct {
		Version uint32
		UID     uint32
		NGroups int16
		Groups  [16]uint32
	}

	var cred xucred
	credLen := uint32(unsafe.Sizeof(cred))

	// SOL_LOCAL and LOCAL_PEERCRED from sys/socket.h and sys/un.h
	const solLocal = 0
	const localPeercred = 0x001

	_, _, errno := syscall.Syscall6(
		syscall.SYS_GETSOCKOPT,
		uintptr(fd),
		uintptr(solLocal),
		uintptr(localPeercred),
		uintptr(unsafe.Pointer(&cred)),
		uintptr(unsafe.Pointer(&credLen)),
		0,
	)
	if errno != 0 {
		return nil, fmt.Errorf("LOCAL_PEERCRED failed: %v", errno)
	}

	// PID is not exposed through LOCAL_PEERCRED
	return &ucred{PID: -1, UID: cred.UID, GID: cred.Groups[0]}, nil
}
