package lifecycle

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/config"
	"github.com/andrejvysny/open-webui-desktop/internal/contracts"
	"github.com/andrejvysny/open-webui-desktop/internal/supervisor"
)

const (
	commandBuffer = 16

	// forceStopTimeout bounds the supervisor stop issued when a run is torn
	// down without a caller-supplied deadline (probe timeout, reset).
	forceStopTimeout = 30 * time.Second
)

// Run outcomes recorded in the run journal.
const (
	RunOutcomeStopped = "stopped"
	RunOutcomeFailed  = "failed"
)

// Launcher owns the OS-level server process. *supervisor.Supervisor implements it.
type Launcher interface {
	Start(ctx context.Context, spec supervisor.Spec) (supervisor.Handle, error)
	Stop(ctx context.Context) error
	Shutdown(ctx context.Context)
	PID() int
	Running() bool
	Logs(n int) []string
	Events() <-chan supervisor.ExitEvent
}

// ReadinessProber verifies that a launched server answers on its address.
// *prober.Prober implements it.
type ReadinessProber interface {
	Probe(ctx context.Context, url string) error
}

// LaunchPlanner resolves the command, environment, and address for one server
// run. The installer implements it; it is consulted on every start so package
// upgrades and path changes take effect without restarting the shell.
type LaunchPlanner interface {
	Plan(ctx context.Context, cfg *config.Config, port int) (supervisor.Spec, error)
}

// RunRecorder persists run history entries.
type RunRecorder interface {
	BeginRun(url string, pid int, startedAt time.Time) (string, error)
	EndRun(id, outcome string, exitCode *int, message string) error
}

// Notifier raises desktop notifications.
type Notifier interface {
	Notify(title, body string) error
}

// Resetter clears persisted application data on app:reset.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Meter records lifecycle metrics. All methods must be safe for concurrent use.
type Meter interface {
	RecordTransition(from, to string)
	SetSessionStatus(status string)
	ObserveProbe(outcome string, elapsed time.Duration)
}

// Options wires the orchestrator's collaborators. Launcher, Prober, and
// Planner are required; the rest may be nil.
type Options struct {
	Config   *config.Config
	Launcher Launcher
	Prober   ReadinessProber
	Planner  LaunchPlanner
	Recorder RunRecorder
	Notifier Notifier
	Resetter Resetter
	Meter    Meter
	Logger   *zap.Logger
}

// Orchestrator serializes every session mutation through a single command
// loop. It is the only writer of the Session record; start, stop, restart,
// reset, and config updates are queued and executed one at a time so two
// supervisor-owned processes or a torn session snapshot cannot occur.
type Orchestrator struct {
	logger *zap.Logger

	cfg   *config.Config
	cfgMu sync.RWMutex

	launcher Launcher
	prober   ReadinessProber
	planner  LaunchPlanner
	recorder RunRecorder
	notifier Notifier
	resetter Resetter
	meter    Meter

	machine *stateMachine
	session atomic.Value // Session

	// Mutated only from the command loop.
	generation  uint64
	probeCancel context.CancelFunc
	runID       string

	commands     chan command
	probeResults chan probeResult

	eventSubs map[chan Event]struct{}
	eventMu   sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdStop
	cmdRestart
	cmdReset
	cmdApplyConfig
)

type command struct {
	kind  commandKind
	ctx   context.Context
	cfg   *config.Config
	reply chan commandResult
}

type commandResult struct {
	session Session
	err     error
}

type probeResult struct {
	generation uint64
	err        error
	elapsed    time.Duration
}

// New creates an orchestrator. Call Start to begin processing commands.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	o := &Orchestrator{
		logger:       logger,
		cfg:          cfg.Clone(),
		launcher:     opts.Launcher,
		prober:       opts.Prober,
		planner:      opts.Planner,
		recorder:     opts.Recorder,
		notifier:     opts.Notifier,
		resetter:     opts.Resetter,
		meter:        opts.Meter,
		machine:      newStateMachine(StatusStopped),
		probeCancel:  func() {},
		commands:     make(chan command, commandBuffer),
		probeResults: make(chan probeResult, 4),
		eventSubs:    make(map[chan Event]struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}
	o.session.Store(Session{Status: StatusStopped})
	return o
}

// Start launches the command loop.
func (o *Orchestrator) Start() {
	o.wg.Add(1)
	go o.run()
}

// Shutdown stops the command loop and terminates any managed process.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.cancel()
	o.wg.Wait()
	o.launcher.Shutdown(ctx)
}

// Session returns the current session snapshot. Safe for concurrent use and
// never blocks on the command loop.
func (o *Orchestrator) Session() Session {
	return o.session.Load().(Session)
}

// Status returns the current lifecycle status.
func (o *Orchestrator) Status() Status {
	return o.Session().Status
}

// Config returns a copy of the active configuration.
func (o *Orchestrator) Config() *config.Config {
	o.cfgMu.RLock()
	defer o.cfgMu.RUnlock()
	return o.cfg.Clone()
}

// Logs returns the most recent captured server output lines.
func (o *Orchestrator) Logs(n int) []string {
	return o.launcher.Logs(n)
}

// StartServer launches the server and returns once the process handle exists.
// The returned session carries the reachable-pending address and pid; the
// status stays starting until the prober confirms reachability.
func (o *Orchestrator) StartServer(ctx context.Context) (Session, error) {
	return o.post(ctx, command{kind: cmdStart})
}

// StopServer terminates the server. Stopping with nothing running succeeds
// silently. On a supervisor error the local state is still forced to stopped
// and the error is returned.
func (o *Orchestrator) StopServer(ctx context.Context) error {
	_, err := o.post(ctx, command{kind: cmdStop})
	return err
}

// RestartServer performs a full stop followed by a start with the current
// configuration.
func (o *Orchestrator) RestartServer(ctx context.Context) (Session, error) {
	return o.post(ctx, command{kind: cmdRestart})
}

// Reset force-stops the server, clears the session, and invokes the reset
// collaborator to wipe persisted application data.
func (o *Orchestrator) Reset(ctx context.Context) error {
	_, err := o.post(ctx, command{kind: cmdReset})
	return err
}

// ApplyConfig validates the given configuration and makes it the active one.
// Changes that affect the server command or address take effect on the next
// start.
func (o *Orchestrator) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	_, err := o.post(ctx, command{kind: cmdApplyConfig, cfg: cfg})
	return err
}

func (o *Orchestrator) post(ctx context.Context, cmd command) (Session, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.ctx = ctx
	cmd.reply = make(chan commandResult, 1)

	select {
	case o.commands <- cmd:
	case <-ctx.Done():
		return o.Session(), ctx.Err()
	case <-o.ctx.Done():
		return o.Session(), contracts.ConcurrencyError("orchestrator is shutting down")
	}

	select {
	case res := <-cmd.reply:
		return res.session, res.err
	case <-ctx.Done():
		return o.Session(), ctx.Err()
	case <-o.ctx.Done():
		return o.Session(), contracts.ConcurrencyError("orchestrator is shutting down")
	}
}

func (o *Orchestrator) run() {
	defer o.wg.Done()

	for {
		select {
		case cmd := <-o.commands:
			o.handleCommand(cmd)
		case evt := <-o.launcher.Events():
			o.handleExit(evt)
		case res := <-o.probeResults:
			o.handleProbeResult(res)
		case <-o.ctx.Done():
			return
		}
	}
}

func (o *Orchestrator) handleCommand(cmd command) {
	// The caller may have given up while the command sat in the queue.
	if err := cmd.ctx.Err(); err != nil {
		cmd.reply <- commandResult{session: o.Session(), err: err}
		return
	}

	var err error
	switch cmd.kind {
	case cmdStart:
		err = o.doStart(cmd.ctx)
	case cmdStop:
		err = o.doStop(cmd.ctx)
	case cmdRestart:
		err = o.doRestart(cmd.ctx)
	case cmdReset:
		err = o.doReset(cmd.ctx)
	case cmdApplyConfig:
		err = o.doApplyConfig(cmd.cfg)
	}

	cmd.reply <- commandResult{session: o.Session(), err: err}
}

func (o *Orchestrator) doStart(ctx context.Context) error {
	// A previous instance must be fully stopped before a new one is launched;
	// two supervisor-owned processes are never allowed.
	if sess := o.Session(); sess.Status != StatusStopped || o.launcher.Running() {
		if err := o.doStop(ctx); err != nil {
			return err
		}
	}

	cfg := o.Config()

	o.generation++
	gen := o.generation

	o.transition(StatusStarting, func(s *Session) {
		s.Generation = gen
		s.URL = ""
		s.LANURL = ""
		s.PID = 0
		s.Reachable = false
		s.StartedAt = time.Time{}
		s.LastError = ""
	})

	port, err := supervisor.PickPort(cfg.Port)
	if err != nil {
		return o.failStart(err)
	}

	spec, err := o.planner.Plan(ctx, cfg, port)
	if err != nil {
		if contracts.KindOf(err) == "" {
			err = contracts.LaunchError("failed to prepare server command", err)
		}
		return o.failStart(err)
	}

	handle, err := o.launcher.Start(ctx, spec)
	if err != nil {
		return o.failStart(err)
	}

	startedAt := time.Now()
	o.transition(StatusStarting, func(s *Session) {
		s.URL = handle.URL
		s.PID = handle.PID
		s.StartedAt = startedAt
		if cfg.ServeOnLocalNetwork {
			s.LANURL = lanURL(port)
		}
	})

	if o.recorder != nil {
		id, recErr := o.recorder.BeginRun(handle.URL, handle.PID, startedAt)
		if recErr != nil {
			o.logger.Warn("Failed to record run start", zap.Error(recErr))
		}
		o.runID = id
	}

	o.attachProber(gen, handle.URL)

	o.logger.Info("Server launched",
		zap.String("url", handle.URL),
		zap.Int("pid", handle.PID),
		zap.Uint64("generation", gen))
	return nil
}

func (o *Orchestrator) failStart(err error) error {
	o.endRun(RunOutcomeFailed, nil, err.Error())
	o.transition(StatusFailed, func(s *Session) {
		s.URL = ""
		s.LANURL = ""
		s.PID = 0
		s.Reachable = false
		s.LastError = err.Error()
	})
	o.notify("Open WebUI failed to start", err.Error())
	o.logger.Error("Server start failed", zap.Error(err))
	return err
}

func (o *Orchestrator) doStop(ctx context.Context) error {
	// Starting or stopping supersedes any in-flight probe for the previous run.
	o.probeCancel()

	if sess := o.Session(); sess.Status == StatusStopped && !o.launcher.Running() {
		return nil
	}

	err := o.launcher.Stop(ctx)
	if err != nil {
		// Local state never stays started once a stop was requested; the
		// error is still reported to the caller.
		o.logger.Warn("Server stop reported an error, forcing local state to stopped", zap.Error(err))
	}

	var detail string
	if err != nil {
		detail = err.Error()
	}
	o.endRun(RunOutcomeStopped, nil, detail)

	o.transition(StatusStopped, func(s *Session) {
		s.URL = ""
		s.LANURL = ""
		s.PID = 0
		s.Reachable = false
		s.StartedAt = time.Time{}
		s.LastError = detail
	})
	return err
}

func (o *Orchestrator) doRestart(ctx context.Context) error {
	if err := o.doStop(ctx); err != nil {
		return err
	}
	return o.doStart(ctx)
}

func (o *Orchestrator) doReset(ctx context.Context) error {
	o.probeCancel()

	stopCtx, cancel := context.WithTimeout(ctx, forceStopTimeout)
	defer cancel()
	if err := o.launcher.Stop(stopCtx); err != nil {
		o.logger.Warn("Force stop during reset failed", zap.Error(err))
	}
	o.endRun(RunOutcomeStopped, nil, "")

	o.transition(StatusStopped, func(s *Session) {
		s.URL = ""
		s.LANURL = ""
		s.PID = 0
		s.Reachable = false
		s.StartedAt = time.Time{}
		s.LastError = ""
	})

	if o.resetter == nil {
		return nil
	}
	if err := o.resetter.Reset(ctx); err != nil {
		rerr := contracts.ResetError("failed to reset application data", err)
		o.notify("Reset failed", rerr.Error())
		o.logger.Error("Application data reset failed", zap.Error(err))
		return rerr
	}

	o.notify("Reset complete", "Application data has been cleared.")
	o.logger.Info("Application data reset")
	return nil
}

func (o *Orchestrator) doApplyConfig(cfg *config.Config) error {
	if cfg == nil {
		return contracts.ConfigError("configuration payload is empty", nil)
	}
	if err := cfg.Validate(); err != nil {
		return contracts.ConfigError("invalid configuration", err)
	}

	o.cfgMu.Lock()
	o.cfg = cfg.Clone()
	o.cfgMu.Unlock()

	o.emitConfigChanged()
	o.logger.Info("Configuration updated",
		zap.Bool("serve_on_local_network", cfg.ServeOnLocalNetwork),
		zap.Bool("auto_update", cfg.AutoUpdate))
	return nil
}

func (o *Orchestrator) attachProber(gen uint64, url string) {
	probeCtx, cancel := context.WithCancel(o.ctx)
	o.probeCancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		begin := time.Now()
		err := o.prober.Probe(probeCtx, url)
		select {
		case o.probeResults <- probeResult{generation: gen, err: err, elapsed: time.Since(begin)}:
		case <-o.ctx.Done():
		}
	}()
}

func (o *Orchestrator) handleProbeResult(res probeResult) {
	sess := o.Session()
	if res.generation != sess.Generation || sess.Status != StatusStarting {
		// Superseded by a later start or an intervening stop.
		return
	}

	switch {
	case res.err == nil:
		o.transition(StatusStarted, func(s *Session) {
			s.Reachable = true
			s.LastError = ""
		})
		if o.meter != nil {
			o.meter.ObserveProbe("success", res.elapsed)
		}
		o.logger.Info("Server is reachable",
			zap.String("url", sess.URL),
			zap.Duration("elapsed", res.elapsed))

	case contracts.KindOf(res.err) == contracts.KindReachabilityTimeout:
		if o.meter != nil {
			o.meter.ObserveProbe("timeout", res.elapsed)
		}
		o.logger.Error("Server never became reachable, stopping it", zap.Error(res.err))

		stopCtx, cancel := context.WithTimeout(o.ctx, forceStopTimeout)
		if stopErr := o.launcher.Stop(stopCtx); stopErr != nil {
			o.logger.Warn("Failed to stop unreachable server", zap.Error(stopErr))
		}
		cancel()

		o.endRun(RunOutcomeFailed, nil, res.err.Error())
		o.transition(StatusFailed, func(s *Session) {
			s.URL = ""
			s.LANURL = ""
			s.PID = 0
			s.Reachable = false
			s.LastError = res.err.Error()
		})
		o.notify("Open WebUI failed to start", res.err.Error())

	default:
		// Probe canceled because the run was stopped or restarted.
	}
}

func (o *Orchestrator) handleExit(evt supervisor.ExitEvent) {
	sess := o.Session()
	if sess.PID == 0 || evt.PID != sess.PID {
		// Exit of a superseded run; the session already moved on.
		return
	}
	if !sess.Status.IsLive() {
		return
	}

	o.probeCancel()

	msg := fmt.Sprintf("server exited unexpectedly (%s)", exitDetail(evt))
	var exitCode *int
	if evt.Signal == "" {
		code := evt.Code
		exitCode = &code
	}
	o.endRun(RunOutcomeFailed, exitCode, msg)

	o.transition(StatusFailed, func(s *Session) {
		s.URL = ""
		s.LANURL = ""
		s.PID = 0
		s.Reachable = false
		s.LastError = msg
	})
	o.notify("Open WebUI stopped unexpectedly", msg)
	o.logger.Error("Server exited unexpectedly",
		zap.Int("pid", evt.PID),
		zap.Int("exit_code", evt.Code),
		zap.String("signal", evt.Signal))
}

// transition moves the session to the next status and publishes the change.
// Must only be called from the command loop.
func (o *Orchestrator) transition(next Status, mutate func(*Session)) {
	sess := o.Session()
	prev := sess.Status

	if !o.machine.Transition(next) {
		o.logger.Warn("Forcing disallowed lifecycle transition",
			zap.String("from", string(prev)),
			zap.String("to", string(next)))
		o.machine.Set(next)
	}

	sess.Status = next
	if mutate != nil {
		mutate(&sess)
	}
	o.session.Store(sess)

	if o.meter != nil {
		if prev != next {
			o.meter.RecordTransition(string(prev), string(next))
		}
		o.meter.SetSessionStatus(string(next))
	}
	o.emitSessionChanged(prev, sess)
}

func (o *Orchestrator) endRun(outcome string, exitCode *int, message string) {
	if o.recorder == nil || o.runID == "" {
		return
	}
	if err := o.recorder.EndRun(o.runID, outcome, exitCode, message); err != nil {
		o.logger.Warn("Failed to record run end", zap.Error(err))
	}
	o.runID = ""
}

func (o *Orchestrator) notify(title, body string) {
	o.publishEvent(newEvent(EventTypeNotification, map[string]any{
		"title": title,
		"body":  body,
	}))
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Notify(title, body); err != nil {
		o.logger.Debug("Desktop notification failed", zap.Error(err))
	}
}

func exitDetail(evt supervisor.ExitEvent) string {
	if evt.Signal != "" {
		return "signal " + evt.Signal
	}
	return fmt.Sprintf("exit code %d", evt.Code)
}

// lanURL returns the address peers on the local network can use, or empty
// when no suitable interface address is found.
func lanURL(port int) string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipnet.IP.To4()
		if ip == nil || !ip.IsGlobalUnicast() {
			continue
		}
		return fmt.Sprintf("http://%s:%d", ip, port)
	}
	return ""
}
