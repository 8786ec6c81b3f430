package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrejvysny/open-webui-desktop/internal/contracts"
)

func runsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent server runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newCommandLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			client := newControlClient(logger)
			records, err := client.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return outputError(cmd, cliError("failed to fetch runs", err))
			}

			formatter, err := formatterFor(cmd)
			if err != nil {
				return err
			}

			var out string
			if outputFormat(cmd) == "table" {
				if len(records) == 0 {
					fmt.Println("No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					rows = append(rows, runRow(rec))
				}
				out, err = formatter.FormatTable(
					[]string{"STARTED", "DURATION", "STATUS", "PID", "EXIT", "DETAIL"}, rows)
			} else {
				out, err = formatter.Format(records)
			}
			if err != nil {
				return fmt.Errorf("failed to format runs: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	addOutputFlags(cmd)
	return cmd
}

func runRow(rec contracts.RunRecord) []string {
	duration := time.Since(rec.StartedAt)
	if rec.EndedAt != nil {
		duration = rec.EndedAt.Sub(rec.StartedAt)
	}

	exit := "-"
	if rec.ExitCode != nil {
		exit = strconv.Itoa(*rec.ExitCode)
	}

	detail := rec.URL
	if rec.Error != "" {
		detail = rec.Error
	}

	return []string{
		rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
		duration.Round(time.Second).String(),
		rec.Status,
		strconv.Itoa(rec.PID),
		exit,
		detail,
	}
}
