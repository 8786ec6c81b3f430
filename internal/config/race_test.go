package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSaveConfigAtomicity hammers SaveConfig with concurrent readers. The
// tray toggles settings while the daemon re-reads the file on restart, so a
// reader must never observe a partially written config.
func TestSaveConfigAtomicity(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping race test in short mode")
	}

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	require.NoError(t, SaveConfig(raceTestConfig(0), configPath))

	const (
		iterations      = 200
		concurrentReads = 10
	)

	var (
		readAttempts int32
		parseErrors  int32
	)

	for i := 0; i < iterations; i++ {
		cfg := raceTestConfig(i)

		var wg sync.WaitGroup

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := SaveConfig(cfg, configPath); err != nil {
				t.Errorf("SaveConfig error: %v", err)
			}
		}()

		for r := 0; r < concurrentReads; r++ {
			wg.Add(1)
			go func(reader int) {
				defer wg.Done()

				// Spread out the reads relative to the write
				time.Sleep(time.Duration(reader) * 100 * time.Microsecond)

				atomic.AddInt32(&readAttempts, 1)

				data, err := os.ReadFile(configPath)
				if err != nil {
					t.Errorf("ReadFile error: %v", err)
					return
				}

				var got Config
				if err := json.Unmarshal(data, &got); err != nil {
					atomic.AddInt32(&parseErrors, 1)
					t.Errorf("reader %d saw corrupt config: %v", reader, err)
				}
			}(r)
		}

		wg.Wait()
	}

	t.Logf("reads=%d parse_errors=%d", atomic.LoadInt32(&readAttempts), atomic.LoadInt32(&parseErrors))
	require.Zero(t, atomic.LoadInt32(&parseErrors))
}

// TestSaveConfigLeavesNoTempFiles verifies failed or completed saves do not
// litter the config directory.
func TestSaveConfigLeavesNoTempFiles(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	for i := 0; i < 5; i++ {
		require.NoError(t, SaveConfig(raceTestConfig(i), configPath))
	}

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ConfigFileName, entries[0].Name())
}

// raceTestConfig varies enough content per iteration that a torn write would
// show up as a JSON parse failure.
func raceTestConfig(iteration int) *Config {
	cfg := DefaultConfig()
	cfg.DataDir = fmt.Sprintf("/tmp/owd-race-%d", iteration)
	port := 8000 + iteration
	cfg.Port = &port
	cfg.ServeOnLocalNetwork = iteration%2 == 0
	cfg.ServerCommand = []string{
		"open-webui", "serve",
		"--host", "127.0.0.1",
		"--port", fmt.Sprintf("%d", port),
		fmt.Sprintf("--marker-%d", iteration),
	}
	return cfg
}
