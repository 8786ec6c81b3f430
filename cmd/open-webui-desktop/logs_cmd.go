package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const followInterval = 1 * time.Second

func logsCommand() *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent server output",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newCommandLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			client := newControlClient(logger)
			ctx := cmd.Context()

			current, err := client.ServerLogs(ctx, lines)
			if err != nil {
				return cliError("failed to fetch server logs", err)
			}
			for _, line := range current {
				fmt.Println(line)
			}
			if !follow {
				return nil
			}

			ticker := time.NewTicker(followInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}

				next, err := client.ServerLogs(ctx, lines)
				if err != nil {
					return cliError("failed to fetch server logs", err)
				}
				for _, line := range appendedLines(current, next) {
					fmt.Println(line)
				}
				current = next
			}
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 100, "Number of log lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new output")
	return cmd
}

// appendedLines returns the lines of cur that were not already printed from
// prev. Both are tail windows, so the newest shared line anchors the split:
// the longest suffix of prev matching a prefix of cur marks old content.
func appendedLines(prev, cur []string) []string {
	if len(prev) == 0 {
		return cur
	}
	maxOverlap := len(prev)
	if len(cur) < maxOverlap {
		maxOverlap = len(cur)
	}
	for k := maxOverlap; k > 0; k-- {
		if linesEqual(prev[len(prev)-k:], cur[:k]) {
			return cur[k:]
		}
	}
	return cur
}

func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
