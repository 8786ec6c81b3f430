package main

import (
	"errors"
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/cli/output"
	"github.com/andrejvysny/open-webui-desktop/internal/cliclient"
	"github.com/andrejvysny/open-webui-desktop/internal/config"
	"github.com/andrejvysny/open-webui-desktop/internal/logs"
	"github.com/andrejvysny/open-webui-desktop/internal/socket"
)

// newCommandLogger builds the quiet console logger client subcommands use.
func newCommandLogger() (*zap.Logger, error) {
	logger, err := logs.SetupCommandLogger(false, logLevel, false, "")
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}
	return logger, nil
}

// loadClientConfig loads configuration for client commands. A broken or
// missing config file falls back to defaults so the CLI can still reach a
// daemon running on standard addresses.
func loadClientConfig() *config.Config {
	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		cfg = config.DefaultConfig()
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg
}

// resolveEndpoint picks the control endpoint: an explicit --endpoint flag,
// then the live control socket, then TCP against the configured listen
// address.
func resolveEndpoint(cfg *config.Config) string {
	if endpoint != "" {
		return endpoint
	}
	ep := socket.DetectEndpoint(cfg.DataDir)
	if socket.IsAvailable(ep) {
		return ep
	}
	return "http://" + cfg.Listen
}

// newControlClient builds the API client every client subcommand talks
// through.
func newControlClient(logger *zap.Logger) *cliclient.Client {
	cfg := loadClientConfig()
	return cliclient.NewClient(resolveEndpoint(cfg), logger.Sugar())
}

// addOutputFlags registers the -o/--output and --json flags on read commands.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "Output format: table, json, yaml")
	cmd.Flags().Bool("json", false, "Shorthand for --output json")
}

// outputFormat resolves the format name selected by the command's output
// flags.
func outputFormat(cmd *cobra.Command) string {
	outputFlag, _ := cmd.Flags().GetString("output")
	jsonFlag, _ := cmd.Flags().GetBool("json")
	return output.ResolveFormat(outputFlag, jsonFlag)
}

// formatterFor resolves the formatter selected by the command's output flags.
func formatterFor(cmd *cobra.Command) (output.OutputFormatter, error) {
	formatter, err := output.NewFormatter(outputFormat(cmd))
	if err != nil {
		return nil, output.NewStructuredError(output.ErrCodeInvalidOutputFormat, err.Error()).
			WithGuidance("Use -o table, -o json, or -o yaml")
	}
	return formatter, nil
}

// cliError returns a formatted error suitable for CLI output, including the
// daemon's correlation ID when one came back. The original error stays in the
// chain so exit-code mapping still sees it.
func cliError(prefix string, err error) error {
	var apiErr *cliclient.APIError
	if errors.As(err, &apiErr) && apiErr.HasCorrelationID() {
		return fmt.Errorf("%s: %w (correlation_id: %s, check shell logs for details)", prefix, err, apiErr.CorrelationID)
	}
	return fmt.Errorf("%s: %w", prefix, err)
}

// structuredErrorCode maps an error to the machine-readable code emitted in
// structured output, mirroring the exit-code mapping.
func structuredErrorCode(err error) string {
	var apiErr *cliclient.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "config_error":
			return output.ErrCodeConfigInvalid
		case "access_denied":
			return output.ErrCodePermissionDenied
		}
		return output.ErrCodeOperationFailed
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return output.ErrCodeConnectionFailed
	}
	return output.ErrCodeOperationFailed
}

// outputError renders err as a machine-parseable error on stdout when a
// structured format is selected, then hands the original error back so
// exit-code mapping still sees it. Table output leaves rendering to the
// standard error path in main.
func outputError(cmd *cobra.Command, err error) error {
	format := outputFormat(cmd)
	if format != "json" && format != "yaml" {
		return err
	}

	structErr := output.FromError(err, structuredErrorCode(err))
	if structErr.Code == output.ErrCodeConnectionFailed {
		structErr = structErr.
			WithGuidance("Ensure the shell is running").
			WithRecoveryCommand("open-webui-desktop run")
	}
	var apiErr *cliclient.APIError
	if errors.As(err, &apiErr) && apiErr.HasCorrelationID() {
		structErr = structErr.WithCorrelationID(apiErr.CorrelationID)
	}

	formatter, fmtErr := output.NewFormatter(format)
	if fmtErr != nil {
		return err
	}
	rendered, fmtErr := formatter.FormatError(structErr)
	if fmtErr != nil {
		return err
	}
	fmt.Print(rendered)
	return err
}
