// Package app assembles the desktop shell. It wires the orchestrator to its
// collaborators, implements the controller interface the bridge and tray
// consume, and runs the control surface and UI gateway until shutdown.
package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/bridge"
	"github.com/andrejvysny/open-webui-desktop/internal/config"
	"github.com/andrejvysny/open-webui-desktop/internal/gateway"
	"github.com/andrejvysny/open-webui-desktop/internal/installer"
	"github.com/andrejvysny/open-webui-desktop/internal/journal"
	"github.com/andrejvysny/open-webui-desktop/internal/lifecycle"
	"github.com/andrejvysny/open-webui-desktop/internal/logs"
	"github.com/andrejvysny/open-webui-desktop/internal/notify"
	"github.com/andrejvysny/open-webui-desktop/internal/observability"
	"github.com/andrejvysny/open-webui-desktop/internal/policy"
	"github.com/andrejvysny/open-webui-desktop/internal/prober"
	"github.com/andrejvysny/open-webui-desktop/internal/secret"
	"github.com/andrejvysny/open-webui-desktop/internal/socket"
	"github.com/andrejvysny/open-webui-desktop/internal/supervisor"
)

const (
	serviceName      = "open-webui-desktop"
	defaultStopGrace = 10 * time.Second
	shutdownTimeout  = 30 * time.Second

	// packageUpdateInterval bounds how often a status query may reach PyPI.
	packageUpdateInterval = 15 * time.Minute
)

// App holds every long-lived component of the shell.
type App struct {
	version    string
	logger     *zap.Logger
	configPath string
	endpoint   string
	logDir     string
	logCfg     *config.LogConfig

	secrets   *secret.Store
	installer *installer.Manager
	journal   *journal.Journal
	notifier  *notify.Desktop
	obs       *observability.Manager
	serverLog io.WriteCloser
	orch      *lifecycle.Orchestrator
	bridge    *bridge.Server
	gateway   *gateway.Gateway

	// openFn launches the OS browser command. Tests substitute it.
	openFn func(name string, args ...string) error

	pkgMu      sync.Mutex
	pkgChecked time.Time
	pkgUpdate  *installer.PackageUpdate

	mu       sync.Mutex
	shutdown bool
}

// New builds the shell from a validated configuration. Collaborators are
// constructed in dependency order; a failure tears down whatever already
// opened.
func New(cfg *config.Config, version string, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	logCfg := cfg.Logging
	if logCfg == nil {
		logCfg = logs.DefaultLogConfig()
	}

	secrets := secret.NewStore(cfg.DataDir, logger)
	sessionSecret, err := secrets.ServerSecret(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session secret: %w", err)
	}
	logs.RegisterSecret(sessionSecret)

	inst := installer.New(cfg, secrets, logger)

	jrnl, err := journal.Open(cfg.DataDir, logger.Sugar())
	if err != nil {
		return nil, fmt.Errorf("failed to open run journal: %w", err)
	}

	tracing := observability.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: version,
	}
	if cfg.Tracing != nil {
		tracing.Enabled = cfg.Tracing.Enabled
		tracing.OTLPEndpoint = cfg.Tracing.OTLPEndpoint
		tracing.SampleRate = cfg.Tracing.SampleRate
	}
	obs, err := observability.NewManager(logger.Sugar(), tracing)
	if err != nil {
		jrnl.Close()
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	serverLog, err := logs.ServerLogWriter(logCfg)
	if err != nil {
		jrnl.Close()
		obs.Close(context.Background())
		return nil, fmt.Errorf("failed to open server log: %w", err)
	}

	stopGrace := defaultStopGrace
	if cfg.StopGraceSeconds > 0 {
		stopGrace = time.Duration(cfg.StopGraceSeconds) * time.Second
	}
	superv := supervisor.New(logger.Sugar(), serverLog, stopGrace)
	prb := prober.New(logger.Sugar(), prober.PolicyFromConfig(cfg.Probe))
	notifier := notify.New(logger, cfg.Notifications)

	logDir := logCfg.LogDir
	if logDir == "" {
		if d, derr := logs.GetLogDir(); derr == nil {
			logDir = d
		}
	}

	a := &App{
		version:    version,
		logger:     logger,
		configPath: config.GetConfigPath(cfg.DataDir),
		endpoint:   socket.DetectEndpoint(cfg.DataDir),
		logDir:     logDir,
		logCfg:     logCfg,
		secrets:    secrets,
		installer:  inst,
		journal:    jrnl,
		notifier:   notifier,
		obs:        obs,
		serverLog:  serverLog,
		openFn:     startCommand,
	}

	a.orch = lifecycle.New(lifecycle.Options{
		Config:   cfg,
		Launcher: superv,
		Prober:   prb,
		Planner:  inst,
		Recorder: jrnl,
		Notifier: notifier,
		Resetter: &dataResetter{installer: inst, secrets: secrets},
		Meter:    obs,
		Logger:   logger,
	})

	obs.RegisterHealthChecker(observability.NewDatabaseHealthChecker("journal", jrnl.DB()))
	sessionChecker := observability.NewSessionHealthChecker("session", func() string {
		return string(a.orch.Session().Status)
	})
	obs.RegisterHealthChecker(sessionChecker)
	obs.RegisterReadinessChecker(sessionChecker)

	gate := policy.NewGate(logger, policy.DefaultExemptOps)
	tokens, err := bridge.NewTokenIssuer(0)
	if err != nil {
		a.closeCollaborators(context.Background())
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}
	a.bridge = bridge.NewServer(a, gate, tokens, obs, logger)

	gw, err := gateway.New(a.orch, tokens, controlBaseURL(cfg.Listen), version, logger)
	if err != nil {
		a.closeCollaborators(context.Background())
		return nil, fmt.Errorf("failed to initialize gateway: %w", err)
	}
	a.gateway = gw

	return a, nil
}

// Run serves the control surface and the UI gateway until ctx is cancelled or
// a listener fails. It blocks; on return the shell is fully shut down.
func (a *App) Run(ctx context.Context) error {
	a.orch.Start()

	cfg := a.orch.Config()

	unixLn, err := socket.Listen(a.endpoint, a.logger)
	if err != nil {
		return fmt.Errorf("failed to listen on control socket %s: %w", a.endpoint, err)
	}
	listeners := []*socket.Listener{unixLn}
	if cfg.Listen != "" {
		tcpLn, lerr := socket.ListenTCP(cfg.Listen, a.logger)
		if lerr != nil {
			unixLn.Close()
			return fmt.Errorf("failed to listen on %s: %w", cfg.Listen, lerr)
		}
		listeners = append(listeners, tcpLn)
	}
	controlLn := socket.Multiplex(a.logger, listeners...)

	gatewayLn, err := net.Listen("tcp", cfg.GatewayListen)
	if err != nil {
		controlLn.Close()
		return fmt.Errorf("failed to listen on gateway address %s: %w", cfg.GatewayListen, err)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- a.bridge.Serve(ctx, controlLn) }()
	go func() { errCh <- a.gateway.Serve(ctx, gatewayLn) }()

	if cfg.StartOnLaunch {
		go func() {
			if _, serr := a.orch.StartServer(ctx); serr != nil {
				a.logger.Warn("Start on launch failed", zap.Error(serr))
			}
		}()
	}

	a.logger.Info("Shell running",
		zap.String("control", cfg.Listen),
		zap.String("gateway", cfg.GatewayListen),
		zap.String("socket", a.endpoint))

	var serveErr error
	select {
	case <-ctx.Done():
		// Serve goroutines shut their http servers down on ctx themselves.
	case serveErr = <-errCh:
		if serveErr != nil {
			a.logger.Error("Surface serve failed", zap.Error(serveErr))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

// Shutdown stops the orchestrator, force-stopping any running server, then
// closes the remaining collaborators. Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if a.shutdown {
		a.mu.Unlock()
		return nil
	}
	a.shutdown = true
	a.mu.Unlock()

	a.logger.Info("Shutting down shell")
	a.orch.Shutdown(ctx)
	a.closeCollaborators(ctx)
	a.logger.Info("Shell shutdown complete")
	return nil
}

func (a *App) closeCollaborators(ctx context.Context) {
	if err := a.journal.Close(); err != nil {
		a.logger.Warn("Failed to close run journal", zap.Error(err))
	}
	if a.serverLog != nil {
		if err := a.serverLog.Close(); err != nil {
			a.logger.Warn("Failed to close server log", zap.Error(err))
		}
	}
	if err := a.obs.Close(ctx); err != nil {
		a.logger.Warn("Failed to close observability", zap.Error(err))
	}
}

// controlBaseURL turns a listen address into the URL UI surfaces reach the
// control bridge on. Wildcard hosts map to loopback.
func controlBaseURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// dataResetter clears persisted server state on app:reset. The shell's own
// configuration, logs, and run journal survive.
type dataResetter struct {
	installer *installer.Manager
	secrets   *secret.Store
}

func (r *dataResetter) Reset(ctx context.Context) error {
	if err := r.installer.ResetServerData(ctx); err != nil {
		return err
	}
	if err := r.secrets.Reset(); err != nil {
		return fmt.Errorf("failed to reset session secret: %w", err)
	}
	// The next start mints a fresh secret; keep the sanitizer covering it.
	if sec, err := r.secrets.ServerSecret(ctx); err == nil {
		logs.RegisterSecret(sec)
	}
	return nil
}
