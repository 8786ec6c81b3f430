//go:build windows

package supervisor

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// procAttr detaches the child from the shell's console and puts it in its own
// process group so ctrl events can target it.
func procAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.CREATE_NO_WINDOW,
	}
}

// terminate sends CTRL_BREAK to the child's process group. Console Python
// servers translate it into a KeyboardInterrupt shutdown.
func terminate(pid int) error {
	err := windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, uint32(pid))
	if err != nil && !errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
		return err
	}
	return nil
}

// forceKill kills the child outright.
func forceKill(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	err = proc.Kill()
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// fillExitStatus extracts the exit code from a Wait error.
func fillExitStatus(err error, exit *ExitEvent) {
	if err == nil {
		exit.Code = 0
		return
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exit.Code = exitErr.ExitCode()
		return
	}
	exit.Code = -1
}
