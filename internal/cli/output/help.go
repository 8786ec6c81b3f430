package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// HelpInfo is the machine-readable description of a command, emitted by the
// --help-json flag so wrappers and UI shells can discover the CLI surface.
type HelpInfo struct {
	// Name is the command name
	Name string `json:"name"`

	// Description is a short description of the command
	Description string `json:"description"`

	// Usage shows how to invoke the command
	Usage string `json:"usage"`

	// Flags lists the flags available on this command
	Flags []FlagInfo `json:"flags,omitempty"`

	// Commands lists subcommands (for parent commands)
	Commands []CommandInfo `json:"commands,omitempty"`
}

// CommandInfo describes one subcommand in a HelpInfo listing.
type CommandInfo struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Usage          string `json:"usage"`
	HasSubcommands bool   `json:"has_subcommands,omitempty"`
}

// FlagInfo describes one flag in a HelpInfo listing.
type FlagInfo struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
}

// ExtractHelpInfo builds a HelpInfo from a cobra command.
func ExtractHelpInfo(cmd *cobra.Command) HelpInfo {
	info := HelpInfo{
		Name:        cmd.Name(),
		Description: cmd.Short,
		Usage:       cmd.UseLine(),
		Flags:       extractFlags(cmd),
	}

	for _, sub := range cmd.Commands() {
		if sub.Hidden || !sub.IsAvailableCommand() {
			continue
		}
		info.Commands = append(info.Commands, CommandInfo{
			Name:           sub.Name(),
			Description:    sub.Short,
			Usage:          sub.UseLine(),
			HasSubcommands: len(sub.Commands()) > 0,
		})
	}

	return info
}

func extractFlags(cmd *cobra.Command) []FlagInfo {
	var flags []FlagInfo
	collect := func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		flags = append(flags, FlagInfo{
			Name:        f.Name,
			Shorthand:   f.Shorthand,
			Description: f.Usage,
			Type:        f.Value.Type(),
			Default:     f.DefValue,
		})
	}
	cmd.LocalFlags().VisitAll(collect)
	cmd.InheritedFlags().VisitAll(collect)
	return flags
}

// SetupHelpJSON registers a persistent --help-json flag on the command tree.
// Any command invoked with it prints its HelpInfo as JSON instead of running.
func SetupHelpJSON(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().Bool("help-json", false, "Output help information as JSON")

	originalPreRunE := rootCmd.PersistentPreRunE
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		requested, _ := cmd.Flags().GetBool("help-json")
		if requested {
			if err := printHelpJSON(cmd); err != nil {
				return err
			}
			os.Exit(0)
		}
		if originalPreRunE != nil {
			return originalPreRunE(cmd, args)
		}
		return nil
	}

	addHelpJSONToTree(rootCmd)
}

// addHelpJSONToTree gives bare parent commands a RunE, so invoking them with
// --help-json works even though they have nothing to run.
func addHelpJSONToTree(cmd *cobra.Command) {
	if cmd.Run == nil && cmd.RunE == nil {
		cmd.RunE = func(c *cobra.Command, _ []string) error {
			requested, _ := c.Flags().GetBool("help-json")
			if requested {
				return printHelpJSON(c)
			}
			return c.Help()
		}
	}
	for _, sub := range cmd.Commands() {
		addHelpJSONToTree(sub)
	}
}

func printHelpJSON(cmd *cobra.Command) error {
	info := ExtractHelpInfo(cmd)
	out, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal help info: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
