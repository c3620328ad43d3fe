package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// snapshotDBFileName is the SQLite database kept in the user-data dir when
// the sqlite backend is configured.
const snapshotDBFileName = "memory.db"

// SQLSnapshotStore persists snapshots in a single-row SQLite table. It
// trades the file store's human-readable JSON for crash-safe writes through
// the database journal.
type SQLSnapshotStore struct {
	db *sql.DB
}

// NewSQLSnapshotStore opens (and initializes if needed) the snapshot
// database under dataDir.
func NewSQLSnapshotStore(dataDir string) (*SQLSnapshotStore, error) {
	db, err := sql.Open("sqlite", filepath.Join(dataDir, snapshotDBFileName))
	if err != nil {
		return nil, fmt.Errorf("memory: open snapshot db: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS memory_snapshot (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		data TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("memory: init snapshot schema: %w", err)
	}
	return &SQLSnapshotStore{db: db}, nil
}

// Load reads and migrates the stored snapshot. An empty table is not an
// error.
func (ss *SQLSnapshotStore) Load(ctx context.Context) (*Snapshot, error) {
	var data string
	err := ss.db.QueryRowContext(ctx, `SELECT data FROM memory_snapshot WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("memory: read snapshot row: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("memory: decode snapshot row: %w", err)
	}
	return &snap, nil
}

// Save upserts the single snapshot row.
func (ss *SQLSnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("memory: encode snapshot: %w", err)
	}

	_, err = ss.db.ExecContext(ctx,
		`INSERT INTO memory_snapshot (id, data) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET data = excluded.data`, string(b))
	if err != nil {
		return fmt.Errorf("memory: write snapshot row: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (ss *SQLSnapshotStore) Close() error {
	return ss.db.Close()
}
