package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/app"
	"github.com/andrejvysny/open-webui-desktop/internal/appinfo"
	"github.com/andrejvysny/open-webui-desktop/internal/config"
	"github.com/andrejvysny/open-webui-desktop/internal/logs"
	"github.com/andrejvysny/open-webui-desktop/internal/tray"
)

var (
	listen        string
	gatewayListen string
	noTray        bool
	logToFile     bool
	logDir        string
)

func runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the desktop shell",
		Long:  "Run the shell: the server orchestrator, the control API, the browser gateway, and the system tray. Invoking open-webui-desktop without a subcommand does the same.",
		RunE:  runShell,
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Control API listen address")
	cmd.Flags().StringVar(&gatewayListen, "gateway-listen", "", "Browser gateway listen address")
	cmd.Flags().BoolVar(&noTray, "no-tray", false, "Disable the system tray icon")
	cmd.Flags().BoolVar(&logToFile, "log-to-file", true, "Enable logging to file in standard OS location")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "Custom log directory path (overrides standard OS location)")
}

func runShell(cmd *cobra.Command, _ []string) error {
	cfg, err := loadShellConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.Logging == nil {
		cfg.Logging = logs.DefaultLogConfig()
	}
	cfg.Logging.Level = logLevel
	cfg.Logging.EnableFile = logToFile
	if logDir != "" {
		cfg.Logging.LogDir = logDir
	}
	if cmd.Flags().Changed("no-tray") {
		cfg.EnableTray = !noTray
	}

	logger, err := logs.SetupLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting open-webui-desktop",
		zap.String("version", appinfo.Version),
		zap.String("data_dir", cfg.DataDir),
		zap.Bool("tray_enabled", cfg.EnableTray))

	for _, dep := range config.CheckDeprecatedFields(config.GetConfigPath(cfg.DataDir)) {
		logger.Warn("Deprecated configuration key",
			zap.String("key", dep.JSONKey),
			zap.String("hint", dep.Message))
	}

	shell, err := app.New(cfg, appinfo.Version, logger)
	if err != nil {
		return fmt.Errorf("failed to create shell: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- shell.Run(ctx)
	}()

	if cfg.EnableTray {
		// The tray event loop must own the main thread on macOS. Quit in
		// the menu cancels ctx, which brings Run down too.
		trayApp := tray.New(shell, logger.Sugar(), appinfo.Version, cancel)
		if trayErr := trayApp.Run(ctx); trayErr != nil && !errors.Is(trayErr, context.Canceled) {
			logger.Error("Tray application error", zap.Error(trayErr))
		}
		cancel()
	}

	return <-errCh
}

func loadShellConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if gatewayListen != "" {
		cfg.GatewayListen = gatewayListen
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
