// Seeds the run journal with representative records so the runs CLI and the
// status dashboard can be developed without launching real servers.
package main

import (
	"flag"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/andrejvysny/open-webui-desktop/internal/config"
	"github.com/andrejvysny/open-webui-desktop/internal/journal"
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		logger.Fatal("Failed to get home dir", zap.Error(err))
	}
	dataDir := flag.String("data-dir", filepath.Join(homeDir, config.DefaultDataDir), "Shell data directory")
	flag.Parse()

	jrnl, err := journal.Open(*dataDir, sugar)
	if err != nil {
		logger.Fatal("Failed to open journal", zap.Error(err))
	}
	defer func() { _ = jrnl.Close() }()

	now := time.Now()

	// A clean run, stopped on request.
	seedRun(logger, jrnl, seededRun{
		url:       "http://127.0.0.1:8080",
		pid:       41200,
		startedAt: now.Add(-55 * time.Minute),
		outcome:   journal.OutcomeStopped,
		exitCode:  intPtr(0),
		message:   "stopped by user",
	})

	// A crash with a nonzero exit.
	seedRun(logger, jrnl, seededRun{
		url:       "http://127.0.0.1:8080",
		pid:       41388,
		startedAt: now.Add(-40 * time.Minute),
		outcome:   journal.OutcomeFailed,
		exitCode:  intPtr(3),
		message:   "exit status 3",
	})

	// A launch that never became reachable.
	seedRun(logger, jrnl, seededRun{
		url:       "http://127.0.0.1:8080",
		pid:       41401,
		startedAt: now.Add(-25 * time.Minute),
		outcome:   journal.OutcomeFailed,
		message:   "server did not answer within 2m0s",
	})

	// An open run, as if a session were live right now.
	seedRun(logger, jrnl, seededRun{
		url:       "http://127.0.0.1:8080",
		pid:       41577,
		startedAt: now.Add(-10 * time.Minute),
	})

	logger.Info("Journal seeded", zap.String("data_dir", *dataDir))
}

type seededRun struct {
	url       string
	pid       int
	startedAt time.Time
	outcome   string
	exitCode  *int
	message   string
}

// seedRun writes one record. An empty outcome leaves the run open.
func seedRun(logger *zap.Logger, jrnl *journal.Journal, run seededRun) {
	id, err := jrnl.BeginRun(run.url, run.pid, run.startedAt)
	if err != nil {
		logger.Fatal("Failed to begin run", zap.Error(err))
	}
	if run.outcome == "" {
		return
	}
	if err := jrnl.EndRun(id, run.outcome, run.exitCode, run.message); err != nil {
		logger.Fatal("Failed to end run", zap.Error(err), zap.String("id", id))
	}
}

func intPtr(v int) *int { return &v }
