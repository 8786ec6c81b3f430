package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrejvysny/open-webui-desktop/internal/cliclient"
	"github.com/andrejvysny/open-webui-desktop/internal/contracts"
)

const startWaitInterval = 1 * time.Second

func serverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Control the supervised server",
	}
	cmd.AddCommand(serverStartCommand(), serverStopCommand(), serverRestartCommand())
	return cmd
}

func serverStartCommand() *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newCommandLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			client := newControlClient(logger)
			info, err := client.StartServer(cmd.Context())
			if err != nil {
				return cliError("failed to start server", err)
			}
			fmt.Printf("Server starting at %s (pid %d)\n", info.URL, info.PID)

			if wait {
				info, err = waitForStarted(cmd.Context(), client)
				if err != nil {
					return err
				}
				fmt.Printf("Server ready at %s\n", info.URL)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Block until the server answers its address")
	return cmd
}

func serverStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newCommandLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			client := newControlClient(logger)
			if _, err := client.StopServer(cmd.Context()); err != nil {
				return cliError("failed to stop server", err)
			}
			fmt.Println("Server stopped")
			return nil
		},
	}
}

func serverRestartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newCommandLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			client := newControlClient(logger)
			info, err := client.RestartServer(cmd.Context())
			if err != nil {
				return cliError("failed to restart server", err)
			}
			fmt.Printf("Server restarting at %s (pid %d)\n", info.URL, info.PID)
			return nil
		},
	}
}

// waitForStarted polls the session until it leaves starting. The daemon
// bounds probing, so the loop ends without its own deadline.
func waitForStarted(ctx context.Context, client *cliclient.Client) (contracts.ServerInfo, error) {
	ticker := time.NewTicker(startWaitInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return contracts.ServerInfo{}, ctx.Err()
		case <-ticker.C:
		}

		info, err := client.ServerInfo(ctx)
		if err != nil {
			return contracts.ServerInfo{}, cliError("failed to query server status", err)
		}
		switch info.Status {
		case "started":
			return info, nil
		case "failed":
			if info.LastError != "" {
				return info, fmt.Errorf("server failed to start: %s", info.LastError)
			}
			return info, fmt.Errorf("server failed to start")
		case "stopped":
			return info, fmt.Errorf("server stopped before becoming reachable")
		}
	}
}
