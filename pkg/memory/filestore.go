package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// snapshotFileName is the single snapshot file kept in the user-data dir.
const snapshotFileName = "memory.json"

// FileSnapshotStore persists snapshots as a JSON file in the application's
// user-data directory, written atomically via a temporary file.
type FileSnapshotStore struct {
	path string
}

// NewFileSnapshotStore creates a file-backed snapshot store rooted at
// dataDir, creating the directory if needed.
func NewFileSnapshotStore(dataDir string) (*FileSnapshotStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("memory: init data dir %s: %w", dataDir, err)
	}
	return &FileSnapshotStore{path: filepath.Join(dataDir, snapshotFileName)}, nil
}

// Path returns the snapshot file path.
func (fs *FileSnapshotStore) Path() string {
	return fs.path
}

// Load reads and migrates the snapshot file. A missing file is not an
// error; it simply means no memory has been persisted yet.
func (fs *FileSnapshotStore) Load(_ context.Context) (*Snapshot, error) {
	b, err := os.ReadFile(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("memory: read snapshot %s: %w", fs.path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("memory: decode snapshot %s: %w", fs.path, err)
	}
	return &snap, nil
}

// Save writes the snapshot atomically: temp file then rename, so a crash
// mid-write never leaves a truncated snapshot behind.
func (fs *FileSnapshotStore) Save(_ context.Context, snap *Snapshot) error {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("memory: encode snapshot: %w", err)
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("memory: write temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("memory: atomic rename %s: %w", fs.path, err)
	}
	return nil
}
