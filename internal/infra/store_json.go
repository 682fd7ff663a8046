package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/mosmello93/focus-timer/internal/config"
	"github.com/mosmello93/focus-timer/internal/domain"
)

const jsonStoreName = "focustimer.json"

// fileSnapshot is the on-disk JSON document. Every key is optional.
type fileSnapshot struct {
	Balance           *float64            `json:"balance,omitempty"`
	History           []domain.Session    `json:"history,omitempty"`
	Settings          *config.RawSettings `json:"settings,omitempty"`
	LastAllowanceDate string              `json:"lastAllowanceDate,omitempty"`
}

// FileStore implements domain.SnapshotStore using a JSON file.
// Writes are atomic (write + rename) and serialized by a lock file.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore creates a JSON snapshot store at path.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Load reads the snapshot. A missing file yields defaults.
func (s *FileStore) Load() (domain.Snapshot, error) {
	snap := domain.Snapshot{Settings: config.ResolveSettings(nil)}

	if err := s.lock.RLock(); err != nil {
		return snap, fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return snap, nil
		}
		return snap, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var doc fileSnapshot
	if err := json.Unmarshal(data, &doc); err != nil {
		return snap, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	if doc.Balance != nil {
		snap.Balance = *doc.Balance
	}
	snap.History = doc.History
	snap.Settings = config.ResolveSettings(doc.Settings)
	snap.LastAllowanceDate = doc.LastAllowanceDate
	return snap, nil
}

// Save replaces the snapshot file.
func (s *FileStore) Save(snap domain.Snapshot) error {
	balance := snap.Balance
	doc := fileSnapshot{
		Balance:           &balance,
		History:           snap.History,
		Settings:          config.ToRaw(snap.Settings),
		LastAllowanceDate: snap.LastAllowanceDate,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	return s.atomicWrite(data)
}

// atomicWrite writes data to the snapshot file atomically (write + rename).
func (s *FileStore) atomicWrite(data []byte) error {
	// Unique per process to avoid races with a second instance
	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) // Clean up on failure
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Path returns the snapshot file path.
func (s *FileStore) Path() string {
	return s.path
}

// Close is a no-op; the lock is only held during Load and Save.
func (s *FileStore) Close() error {
	return nil
}

var _ domain.SnapshotStore = (*FileStore)(nil)
