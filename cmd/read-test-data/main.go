// Dumps the run journal for debugging, newest first.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/config"
	"github.com/andrejvysny/open-webui-desktop/internal/journal"
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	homeDir, _ := os.UserHomeDir()
	dataDir := flag.String("data-dir", filepath.Join(homeDir, config.DefaultDataDir), "Shell data directory")
	limit := flag.Int("limit", 50, "Maximum number of runs to print")
	flag.Parse()

	jrnl, err := journal.Open(*dataDir, sugar)
	if err != nil {
		fmt.Printf("Error opening journal: %v\n", err)
		return
	}
	defer func() { _ = jrnl.Close() }()

	runs, err := jrnl.Recent(*limit)
	if err != nil {
		fmt.Printf("Error reading runs: %v\n", err)
		return
	}

	fmt.Printf("Runs in journal: %d\n\n", len(runs))
	for i, run := range runs {
		fmt.Printf("%d. ID: %s\n", i+1, run.ID)
		fmt.Printf("   URL: %s, PID: %d\n", run.URL, run.PID)
		fmt.Printf("   Outcome: %s\n", run.Outcome)
		if run.ExitCode != nil {
			fmt.Printf("   Exit code: %d\n", *run.ExitCode)
		}
		if run.Message != "" {
			fmt.Printf("   Message: %s\n", run.Message)
		}
		fmt.Printf("   Started: %v\n", run.StartedAt)
		if !run.EndedAt.IsZero() {
			fmt.Printf("   Ended: %v\n", run.EndedAt)
		}
		fmt.Println()
	}
}
