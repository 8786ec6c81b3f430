//go:build !windows

package supervisor

import (
	"errors"
	"os/exec"
	"syscall"
)

// procAttr puts the child in its own process group so termination signals
// reach any descendants it spawns to serve requests.
func procAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// terminate asks the child's process group to exit.
func terminate(pid int) error {
	err := syscall.Kill(-pid, syscall.SIGTERM)
	if err != nil && !errors.Is(err, syscall.ESRCH) {
		return err
	}
	return nil
}

// forceKill kills the child's process group outright.
func forceKill(pid int) error {
	err := syscall.Kill(-pid, syscall.SIGKILL)
	if err != nil && !errors.Is(err, syscall.ESRCH) {
		return err
	}
	return nil
}

// fillExitStatus extracts exit code and signal from a Wait error.
func fillExitStatus(err error, exit *ExitEvent) {
	if err == nil {
		exit.Code = 0
		return
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			exit.Code = status.ExitStatus()
			if status.Signaled() {
				exit.Signal = status.Signal().String()
			}
			return
		}
	}
	exit.Code = -1
}
