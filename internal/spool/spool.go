// Package spool persists an undelivered snapshot to a single local file so
// counters survive crashes and delivery failures. The file's presence is the
// sole signal of an undelivered batch.
package spool

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/benjaminjonard/sagittarius/internal/stats"
)

// DefaultPath is the spool file location when none is configured.
const DefaultPath = "stats_backup.json"

// Spool persists one snapshot at a fixed path.
type Spool struct {
	path string
}

// New creates a spool at the given path.
func New(path string) *Spool {
	if path == "" {
		path = DefaultPath
	}
	return &Spool{path: path}
}

// Path returns the spool file location.
func (s *Spool) Path() string {
	return s.path
}

// Save serializes the snapshot and writes it atomically, replacing any
// prior file. Called only when a delivery attempt fails.
func (s *Spool) Save(snap stats.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("spool: failed to encode snapshot: %w", err)
	}

	// Write to a temp file in the same directory, then rename over the
	// target so readers never observe a partial write.
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".spool-*.json")
	if err != nil {
		return fmt.Errorf("spool: failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("spool: failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("spool: failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("spool: failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("spool: failed to replace spool file: %w", err)
	}

	return nil
}

// Load reads the spooled snapshot if one exists. A missing file means a
// clean state and returns (nil, nil). A read or parse failure is treated as
// no backup: it is logged and (nil, nil) is returned so the agent starts
// from zero instead of aborting.
func (s *Spool) Load() (*stats.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		log.Printf("Spool read failed, starting from zero: %v", err)
		return nil, nil
	}

	var snap stats.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("Spool file %s is corrupt, starting from zero: %v", s.path, err)
		return nil, nil
	}
	if snap.Events == nil {
		snap.Events = make(map[string]uint64)
	}

	return &snap, nil
}

// Clear removes the spool file. Called only after a confirmed successful
// delivery; a file that is already gone is not an error.
func (s *Spool) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("spool: failed to remove spool file: %w", err)
	}
	return nil
}
