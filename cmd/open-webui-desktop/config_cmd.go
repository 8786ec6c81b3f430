package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or change shell configuration",
	}
	cmd.AddCommand(configGetCommand(), configSetCommand())
	return cmd
}

func configGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the active configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newCommandLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			client := newControlClient(logger)
			cfg, err := client.GetConfig(cmd.Context())
			if err != nil {
				return outputError(cmd, cliError("failed to get configuration", err))
			}

			formatter, err := formatterFor(cmd)
			if err != nil {
				return err
			}
			out, err := formatter.Format(cfg)
			if err != nil {
				return fmt.Errorf("failed to format configuration: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}
	addOutputFlags(cmd)
	return cmd
}

func configSetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set key=value [key=value...]",
		Short: "Change configuration fields",
		Long: `Change configuration fields on the running shell. Values are parsed as JSON
literals, so booleans, numbers, and arrays work directly:

  open-webui-desktop config set port=8080
  open-webui-desktop config set serve_on_local_network=true
  open-webui-desktop config set server_command='["python","-m","my_server"]'

The change is applied immediately and persisted. Fields affecting the server
command or address take effect on the next start.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseConfigAssignments(args)
			if err != nil {
				return err
			}

			logger, err := newCommandLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			client := newControlClient(logger)
			if _, err := client.SetConfig(cmd.Context(), patch); err != nil {
				return cliError("failed to update configuration", err)
			}
			fmt.Println("Configuration updated")
			return nil
		},
	}
	return cmd
}

// parseConfigAssignments turns key=value arguments into a JSON patch object.
// Values parse as JSON literals first, so true stays a boolean and 8080 a
// number; anything unparseable is kept as a plain string.
func parseConfigAssignments(args []string) (map[string]interface{}, error) {
	patch := make(map[string]interface{}, len(args))
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		var parsed interface{}
		if err := json.Unmarshal([]byte(value), &parsed); err != nil {
			parsed = value
		}
		patch[key] = parsed
	}
	return patch, nil
}
