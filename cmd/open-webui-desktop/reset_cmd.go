package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func resetCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear server data",
		Long:  "Force-stop the server and clear its persisted data and session secret. Shell configuration, logs, and run history are kept.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			confirmed, err := confirmReset(force, os.Stdin)
			if err != nil {
				return err
			}
			if !confirmed {
				fmt.Println("Reset cancelled")
				return nil
			}

			logger, err := newCommandLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			client := newControlClient(logger)
			if _, err := client.ResetApp(cmd.Context()); err != nil {
				return cliError("failed to reset application data", err)
			}
			fmt.Println("Application data cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation prompt")
	return cmd
}

// confirmReset prompts before wiping server data.
// Returns (true, nil) if the user confirms or force is set.
// Returns (false, error) when run non-interactively without --force.
func confirmReset(force bool, in io.Reader) (bool, error) {
	if force {
		return true, nil
	}

	if f, ok := in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return false, fmt.Errorf("reset requires --force in non-interactive mode")
	}

	fmt.Print("⚠️  This stops the server and deletes its data. Continue? [y/N]: ")

	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes", nil
}
