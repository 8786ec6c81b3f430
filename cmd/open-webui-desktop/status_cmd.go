package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/andrejvysny/open-webui-desktop/internal/contracts"
	"github.com/andrejvysny/open-webui-desktop/internal/tui"
)

// statusReport is the flat one-shot status view. Flat keys render as a clean
// KEY/VALUE table and stay greppable in json output.
type statusReport struct {
	Status          string `json:"status"`
	URL             string `json:"url,omitempty"`
	LANURL          string `json:"lan_url,omitempty"`
	PID             int    `json:"pid,omitempty"`
	Reachable       bool   `json:"reachable"`
	Uptime          string `json:"uptime,omitempty"`
	LastError       string `json:"last_error,omitempty"`
	PythonInstalled bool   `json:"python_installed"`
	PythonVersion   string `json:"python_version,omitempty"`
	PackageVersion  string `json:"package_version,omitempty"`
	UpdateAvailable bool   `json:"update_available,omitempty"`
	LatestVersion   string `json:"latest_version,omitempty"`
}

func statusCommand() *cobra.Command {
	var watch bool
	var refreshSeconds int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show server session status",
		Long:  "Show the supervised server session, the managed Python runtime, and the server package. --watch opens a live dashboard.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newCommandLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			client := newControlClient(logger)

			if watch {
				if refreshSeconds < 1 {
					return fmt.Errorf("--refresh must be at least 1 (got %d)", refreshSeconds)
				}
				m := tui.NewModel(client, time.Duration(refreshSeconds)*time.Second)
				p := tea.NewProgram(m, tea.WithAltScreen())
				if _, err := p.Run(); err != nil {
					return fmt.Errorf("dashboard error: %w", err)
				}
				return nil
			}

			ctx := cmd.Context()
			info, err := client.ServerInfo(ctx)
			if err != nil {
				return outputError(cmd, cliError("failed to query server status", err))
			}
			runtimeStatus, err := client.RuntimeStatus(ctx)
			if err != nil {
				return outputError(cmd, cliError("failed to query runtime status", err))
			}
			pkg, err := client.PackageStatus(ctx)
			if err != nil {
				return outputError(cmd, cliError("failed to query package status", err))
			}

			formatter, err := formatterFor(cmd)
			if err != nil {
				return err
			}
			out, err := formatter.Format(buildStatusReport(info, runtimeStatus, pkg))
			if err != nil {
				return fmt.Errorf("failed to format status: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Open a live terminal dashboard")
	cmd.Flags().IntVar(&refreshSeconds, "refresh", 3, "Dashboard refresh interval in seconds")
	addOutputFlags(cmd)
	return cmd
}

func buildStatusReport(info contracts.ServerInfo, rt contracts.RuntimeStatus, pkg contracts.PackageStatus) statusReport {
	report := statusReport{
		Status:          info.Status,
		URL:             info.URL,
		LANURL:          info.LANURL,
		PID:             info.PID,
		Reachable:       info.Reachable,
		LastError:       info.LastError,
		PythonInstalled: rt.Installed,
		PythonVersion:   rt.Version,
		PackageVersion:  pkg.Version,
		UpdateAvailable: pkg.UpdateAvailable,
		LatestVersion:   pkg.Latest,
	}
	if info.StartedAt != nil && !info.StartedAt.IsZero() && info.Status == "started" {
		report.Uptime = time.Since(*info.StartedAt).Round(time.Second).String()
	}
	return report
}
