// Package journal keeps a local history of sync runs in a bbolt database,
// one bucket per sync target.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/alexjbarnes/asset-sync/internal/assetsync"
	errs "github.com/alexjbarnes/asset-sync/internal/errors"
)

const (
	// journalDirPerm is the permission mode for the journal directory.
	journalDirPerm = fs.FileMode(0o700)

	// journalFilePerm is the permission mode for the database file.
	journalFilePerm = fs.FileMode(0o600)

	// journalOpenTimeout is the maximum time to wait for the bolt file lock,
	// which is held by any other running asset-sync process.
	journalOpenTimeout = 5 * time.Second

	targetBucketPrefix = "target:"
)

func targetBucket(target string) []byte {
	return []byte(targetBucketPrefix + target)
}

// Journal records runs. It implements assetsync.RunRecorder.
type Journal struct {
	db *bolt.DB
}

var _ assetsync.RunRecorder = (*Journal)(nil)

// DefaultPath returns ~/.asset-sync/journal.db.
func DefaultPath() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: cannot determine home directory: %w", errs.ErrConfig, err)
	}

	return filepath.Join(dir, ".asset-sync", "journal.db"), nil
}

// Open opens the journal at path, creating it if needed.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), journalDirPerm); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	db, err := bolt.Open(path, journalFilePerm, &bolt.Options{Timeout: journalOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("%w: opening journal: %w", errs.ErrState, err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordRun appends run to its target's history.
func (j *Journal) RecordRun(run assetsync.Run) error {
	if strings.TrimSpace(run.Target) == "" {
		return fmt.Errorf("%w: run has no target", errs.ErrValidation)
	}

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encoding run: %w", err)
	}

	return j.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(targetBucket(run.Target))
		if err != nil {
			return err
		}

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		return b.Put(seqKey(seq), data)
	})
}

// Runs returns up to limit runs for target, newest first. A limit of zero
// or less returns every run. An unknown target has no runs.
func (j *Journal) Runs(target string, limit int) ([]assetsync.Run, error) {
	runs := make([]assetsync.Run, 0)

	err := j.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(targetBucket(target))
		if b == nil {
			return nil
		}

		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(runs) >= limit {
				break
			}

			var run assetsync.Run
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("decoding run %d: %w", binary.BigEndian.Uint64(k), err)
			}

			runs = append(runs, run)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading runs for %s: %w", target, err)
	}

	return runs, nil
}

// Targets returns every target with recorded runs, sorted.
func (j *Journal) Targets() ([]string, error) {
	var targets []string

	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			if t, ok := strings.CutPrefix(string(name), targetBucketPrefix); ok {
				targets = append(targets, t)
			}

			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}

	sort.Strings(targets)

	return targets, nil
}

// Prune keeps the newest keep runs for target and deletes the rest.
func (j *Journal) Prune(target string, keep int) (int, error) {
	removed := 0

	err := j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(targetBucket(target))
		if b == nil {
			return nil
		}

		var stale [][]byte

		c := b.Cursor()
		seen := 0

		for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
			seen++
			if seen > keep {
				stale = append(stale, append([]byte(nil), k...))
			}
		}

		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}

		removed = len(stale)

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("pruning runs for %s: %w", target, err)
	}

	return removed, nil
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)

	return k
}
