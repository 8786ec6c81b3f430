package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andrejvysny/open-webui-desktop/internal/appinfo"
	"github.com/andrejvysny/open-webui-desktop/internal/cli/output"
)

var (
	configFile string
	dataDir    string
	logLevel   string
	endpoint   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "open-webui-desktop",
		Short:   "Open WebUI Desktop - launches and supervises a local Open WebUI server",
		Long:    "Open WebUI Desktop runs a local Open WebUI server under supervision and exposes controls for it: a system tray, a local control API, and a browser gateway.",
		Version: appinfo.Version,
		RunE:    runShell,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "Data directory path (default: ~/.open-webui-desktop)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "Control endpoint of a running shell (socket path or http URL)")

	// Bare invocation behaves like "run", so the run flags live on the root
	// command as well.
	addRunFlags(rootCmd)

	rootCmd.AddCommand(
		runCommand(),
		serverCommand(),
		statusCommand(),
		configCommand(),
		logsCommand(),
		runsCommand(),
		resetCommand(),
		versionCommand(),
	)

	output.SetupHelpJSON(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeForError(err))
	}
}
