package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andrejvysny/open-webui-desktop/internal/appinfo"
)

type versionReport struct {
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Date     string `json:"date"`
	Platform string `json:"platform"`
	Arch     string `json:"arch"`
}

func versionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show build version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := appinfo.Get()
			formatter, err := formatterFor(cmd)
			if err != nil {
				return err
			}
			out, err := formatter.Format(versionReport{
				Version:  info.Version,
				Commit:   info.Commit,
				Date:     info.Date,
				Platform: info.Platform,
				Arch:     info.Arch,
			})
			if err != nil {
				return fmt.Errorf("failed to format version: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}

	addOutputFlags(cmd)
	return cmd
}
