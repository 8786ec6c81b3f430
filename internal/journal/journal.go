// Package journal persists server run history in a local BBolt database.
// Each lifecycle session becomes one run record: opened when the process
// starts, closed with an outcome when it stops, fails, or exits.
package journal

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const (
	// runsBucket is the BBolt bucket holding run records.
	runsBucket = "runs"

	// defaultMaxRuns bounds the history kept on disk. Oldest records are
	// pruned on open once the bucket grows past this.
	defaultMaxRuns = 500

	openTimeout = 10 * time.Second
)

// Run outcomes. A record keeps OutcomeRunning until EndRun closes it.
const (
	OutcomeRunning = "running"
	OutcomeStopped = "stopped"
	OutcomeFailed  = "failed"
)

// runKey builds a bucket key ordered by start time.
// Key format: {timestamp_ns}_{ulid}; the 20-digit nanosecond timestamp keeps
// cursor order chronological.
func runKey(startedAt time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%020d_%s", startedAt.UnixNano(), id))
}

// parseRunKey extracts the ULID from a run key. Returns empty string for
// malformed keys.
func parseRunKey(key []byte) string {
	s := string(key)
	if len(s) < 22 {
		return ""
	}
	return s[21:]
}

// Journal owns the runs database.
type Journal struct {
	db     *bbolt.DB
	logger *zap.SugaredLogger
	mu     sync.RWMutex
}

// Open opens (or creates) the runs database under dataDir and prunes history
// beyond the retention bound.
func Open(dataDir string, logger *zap.SugaredLogger) (*Journal, error) {
	dbPath := filepath.Join(dataDir, "runs.db")

	db, err := bbolt.Open(dbPath, 0644, &bbolt.Options{
		Timeout: openTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open runs database: %w", err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(runsBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize runs bucket: %w", err)
	}

	j := &Journal{db: db, logger: logger}

	if deleted, err := j.pruneExcess(defaultMaxRuns); err != nil {
		logger.Warnw("Failed to prune run history", "error", err)
	} else if deleted > 0 {
		logger.Infow("Pruned old run records", "deleted", deleted)
	}

	return j, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// DB exposes the underlying database for health checks.
func (j *Journal) DB() *bbolt.DB {
	return j.db
}

// BeginRun records the start of a server session and returns the new run ID.
func (j *Journal) BeginRun(url string, pid int, startedAt time.Time) (string, error) {
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	record := &RunRecord{
		ID:        ulid.Make().String(),
		URL:       url,
		PID:       pid,
		Outcome:   OutcomeRunning,
		StartedAt: startedAt.UTC(),
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	err := j.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(runsBucket))

		data, err := record.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to marshal run record: %w", err)
		}
		return bucket.Put(runKey(record.StartedAt, record.ID), data)
	})
	if err != nil {
		return "", err
	}
	return record.ID, nil
}

// EndRun closes an open run with an outcome. exitCode may be nil when the
// process was terminated by signal or never produced one.
func (j *Journal) EndRun(id, outcome string, exitCode *int, message string) error {
	if id == "" {
		return fmt.Errorf("run ID cannot be empty")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	return j.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(runsBucket))

		// The run being closed is almost always the newest record, so scan
		// from the tail.
		cursor := bucket.Cursor()
		for k, v := cursor.Last(); k != nil; k, v = cursor.Prev() {
			if parseRunKey(k) != id {
				continue
			}

			var record RunRecord
			if err := record.UnmarshalBinary(v); err != nil {
				return fmt.Errorf("failed to unmarshal run record: %w", err)
			}

			record.Outcome = outcome
			record.ExitCode = exitCode
			record.Message = message
			record.EndedAt = time.Now().UTC()

			data, err := record.MarshalBinary()
			if err != nil {
				return fmt.Errorf("failed to marshal run record: %w", err)
			}
			return bucket.Put(k, data)
		}

		return fmt.Errorf("run record not found: %s", id)
	})
}

// Recent returns the newest run records, most recent first.
func (j *Journal) Recent(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	var records []RunRecord

	err := j.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(runsBucket))

		cursor := bucket.Cursor()
		for k, v := cursor.Last(); k != nil && len(records) < limit; k, v = cursor.Prev() {
			var record RunRecord
			if err := record.UnmarshalBinary(v); err != nil {
				j.logger.Warnw("Skipping unreadable run record", "key", string(k), "error", err)
				continue
			}
			records = append(records, record)
		}
		return nil
	})

	return records, err
}

// Get returns a run record by ID, or nil when unknown.
func (j *Journal) Get(id string) (*RunRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("run ID cannot be empty")
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	var record *RunRecord

	err := j.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(runsBucket))

		cursor := bucket.Cursor()
		for k, v := cursor.Last(); k != nil; k, v = cursor.Prev() {
			if parseRunKey(k) != id {
				continue
			}
			record = &RunRecord{}
			if err := record.UnmarshalBinary(v); err != nil {
				return fmt.Errorf("failed to unmarshal run record: %w", err)
			}
			return nil
		}
		return nil
	})

	return record, err
}

// pruneExcess deletes the oldest records until at most maxRecords remain.
func (j *Journal) pruneExcess(maxRecords int) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var deleted int

	err := j.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(runsBucket))

		count := bucket.Stats().KeyN
		if count <= maxRecords {
			return nil
		}

		toDelete := count - maxRecords
		var keys [][]byte
		cursor := bucket.Cursor()
		for k, _ := cursor.First(); k != nil && len(keys) < toDelete; k, _ = cursor.Next() {
			keys = append(keys, append([]byte{}, k...))
		}

		for _, key := range keys {
			if err := bucket.Delete(key); err != nil {
				return fmt.Errorf("failed to delete run record: %w", err)
			}
			deleted++
		}
		return nil
	})

	return deleted, err
}
