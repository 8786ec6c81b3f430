// Package supervisor owns the supervised server child process. Exactly one
// process handle is held at a time; all handle mutation is serialized.
package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/contracts"
)

// Spec describes one server launch, fully resolved by the caller.
type Spec struct {
	Binary     string
	Args       []string
	Env        []string
	WorkingDir string
	Port       int    // bound port, used to verify release on stop
	URL        string // reachable-pending address reported back to the session
}

// Handle identifies a successfully launched process.
type Handle struct {
	URL string
	PID int
}

// ExitEvent reports a child process exit to the orchestrator.
type ExitEvent struct {
	PID       int
	Code      int
	Signal    string
	Err       error
	Timestamp time.Time
}

const (
	// launchGrace is how long a fresh process must survive before Start
	// reports success. Immediate exits become LaunchError.
	launchGrace = 300 * time.Millisecond

	// portReleaseWait bounds how long Stop waits for the bound port to be
	// released after the process exits.
	portReleaseWait = 5 * time.Second

	ringCapacity = 1000
)

// Supervisor starts, stops, and watches the server child process.
type Supervisor struct {
	logger    *zap.SugaredLogger
	serverLog io.Writer
	stopGrace time.Duration

	mu   sync.Mutex
	cmd  *exec.Cmd
	pid  int
	port int
	done chan struct{} // closed by the watcher after the process is reaped

	// lastExit has its own lock: the watcher records it while Start or Stop
	// hold mu waiting on done.
	exitMu   sync.Mutex
	lastExit *ExitEvent

	ring   *ring
	events chan ExitEvent

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a supervisor. serverLog receives the child's raw stdout/stderr
// lines and may be nil.
func New(logger *zap.SugaredLogger, serverLog io.Writer, stopGrace time.Duration) *Supervisor {
	if stopGrace <= 0 {
		stopGrace = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		logger:    logger,
		serverLog: serverLog,
		stopGrace: stopGrace,
		ring:      newRing(ringCapacity),
		events:    make(chan ExitEvent, 16),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Events delivers child exit reports. The channel is never closed while the
// supervisor lives; consumers select on it.
func (s *Supervisor) Events() <-chan ExitEvent {
	return s.events
}

// Start launches the process described by spec. A previous instance still
// registered is fully stopped first, so at most one child is ever owned.
func (s *Supervisor) Start(ctx context.Context, spec Spec) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		s.logger.Warnw("Previous process still registered, stopping it first", "pid", s.pid)
		if err := s.stopLocked(ctx); err != nil {
			return Handle{}, fmt.Errorf("failed to stop previous process: %w", err)
		}
	}

	if spec.Binary == "" {
		return Handle{}, contracts.LaunchError("no server command resolved", nil)
	}

	s.logger.Infow("Starting server process",
		"binary", spec.Binary,
		"args", maskSensitiveArgs(spec.Args),
		"env_count", len(spec.Env),
		"working_dir", spec.WorkingDir)

	cmd := exec.CommandContext(s.ctx, spec.Binary, spec.Args...)
	if spec.WorkingDir != "" {
		cmd.Dir = spec.WorkingDir
	}
	if len(spec.Env) > 0 {
		cmd.Env = spec.Env
	}
	cmd.SysProcAttr = procAttr()

	if err := s.setupOutputCapture(cmd); err != nil {
		return Handle{}, contracts.LaunchError("failed to capture process output", err)
	}

	if err := cmd.Start(); err != nil {
		return Handle{}, contracts.LaunchError("failed to start server process", err)
	}

	pid := cmd.Process.Pid
	done := make(chan struct{})

	s.cmd = cmd
	s.pid = pid
	s.port = spec.Port
	s.done = done
	s.exitMu.Lock()
	s.lastExit = nil
	s.exitMu.Unlock()

	go s.watch(cmd, pid, done)

	// An immediate exit means the launch failed, whatever the exit code says.
	select {
	case <-done:
		exit := s.takeExit(pid)
		s.clearLocked()
		tail := strings.Join(s.ring.Tail(5), "; ")
		if tail != "" {
			return Handle{}, contracts.LaunchError(
				fmt.Sprintf("server process exited during startup (code %d): %s", exit.Code, tail), exit.Err)
		}
		return Handle{}, contracts.LaunchError(
			fmt.Sprintf("server process exited during startup (code %d)", exit.Code), exit.Err)
	case <-time.After(launchGrace):
	}

	s.logger.Infow("Server process started", "pid", pid, "url", spec.URL)
	return Handle{URL: spec.URL, PID: pid}, nil
}

// Stop terminates the owned process. Stopping with nothing running succeeds
// silently. The bound port must be observed released before Stop returns.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(ctx)
}

func (s *Supervisor) stopLocked(ctx context.Context) error {
	if s.cmd == nil {
		return nil
	}

	pid := s.pid
	port := s.port
	done := s.done

	s.logger.Infow("Stopping server process", "pid", pid)

	if err := terminate(pid); err != nil {
		s.logger.Warnw("Failed to signal process", "pid", pid, "error", err)
	}

	select {
	case <-done:
		s.logger.Infow("Server process stopped gracefully", "pid", pid)
	case <-time.After(s.stopGrace):
		s.logger.Warnw("Server process did not stop within grace period, killing", "pid", pid)
		if err := forceKill(pid); err != nil {
			s.logger.Errorw("Failed to kill process", "pid", pid, "error", err)
		}
		select {
		case <-done:
		case <-time.After(portReleaseWait):
			return contracts.ShutdownTimeoutError(
				fmt.Sprintf("server process %d did not exit after kill", pid), nil)
		}
	}

	s.clearLocked()

	if port > 0 {
		if err := waitPortReleased(ctx, port, portReleaseWait); err != nil {
			return contracts.ShutdownTimeoutError(
				fmt.Sprintf("port %d still held after server process exit", port), err)
		}
	}

	return nil
}

// Shutdown stops any owned process and releases supervisor resources.
func (s *Supervisor) Shutdown(ctx context.Context) {
	if err := s.Stop(ctx); err != nil {
		s.logger.Warnw("Stop during shutdown failed", "error", err)
	}
	s.cancel()
}

// PID returns the owned process id, or 0 when nothing is owned.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid
}

// Running reports whether a live process handle is currently owned.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

// Logs returns the last n captured output lines, newest last. Best effort:
// empty when nothing has been captured.
func (s *Supervisor) Logs(n int) []string {
	return s.ring.Tail(n)
}

// watch reaps the process and publishes its exit. The exit is recorded before
// done closes so whoever was waiting on done can read it.
func (s *Supervisor) watch(cmd *exec.Cmd, pid int, done chan struct{}) {
	err := cmd.Wait()

	exit := ExitEvent{PID: pid, Timestamp: time.Now(), Err: err}
	fillExitStatus(err, &exit)

	s.exitMu.Lock()
	s.lastExit = &exit
	s.exitMu.Unlock()
	close(done)

	if err != nil {
		s.logger.Warnw("Server process exited",
			"pid", pid, "exit_code", exit.Code, "signal", exit.Signal, "error", err)
	} else {
		s.logger.Infow("Server process exited normally", "pid", pid)
	}

	select {
	case s.events <- exit:
	default:
		s.logger.Warnw("Exit event channel full, dropping event", "pid", pid)
	}
}

// takeExit returns the recorded exit of the given process.
func (s *Supervisor) takeExit(pid int) ExitEvent {
	s.exitMu.Lock()
	defer s.exitMu.Unlock()
	if s.lastExit != nil {
		return *s.lastExit
	}
	return ExitEvent{PID: pid, Timestamp: time.Now()}
}

func (s *Supervisor) clearLocked() {
	s.cmd = nil
	s.pid = 0
	s.port = 0
	s.done = nil
}

// setupOutputCapture wires the child's stdout/stderr into the ring buffer and
// the server log file.
func (s *Supervisor) setupOutputCapture(cmd *exec.Cmd) error {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		stdoutPipe.Close()
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	go s.captureOutput(stdoutPipe, "stdout")
	go s.captureOutput(stderrPipe, "stderr")

	return nil
}

func (s *Supervisor) captureOutput(pipe io.ReadCloser, streamName string) {
	defer pipe.Close()

	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		s.ring.Append(line)

		if s.serverLog != nil {
			fmt.Fprintln(s.serverLog, line)
		}

		lower := strings.ToLower(line)
		if strings.Contains(lower, "error") || strings.Contains(lower, "traceback") {
			s.logger.Warnw("Server error output", "stream", streamName, "line", line)
		} else {
			s.logger.Debugw("Server output", "stream", streamName, "line", line)
		}
	}

	if err := scanner.Err(); err != nil {
		s.logger.Warnw("Error reading server output", "stream", streamName, "error", err)
	}
}

// maskSensitiveArgs masks sensitive data in command arguments before logging.
func maskSensitiveArgs(args []string) []string {
	masked := make([]string, len(args))
	copy(masked, args)

	for i, arg := range masked {
		lower := strings.ToLower(arg)
		if strings.Contains(lower, "key") ||
			strings.Contains(lower, "secret") ||
			strings.Contains(lower, "token") ||
			strings.Contains(lower, "password") {
			if len(arg) > 8 {
				masked[i] = arg[:4] + "****" + arg[len(arg)-4:]
			} else {
				masked[i] = "****"
			}
		}
	}

	return masked
}
