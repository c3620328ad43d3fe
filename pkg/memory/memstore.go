package memory

import (
	"context"
	"sync"
)

// MemorySnapshotStore keeps the snapshot in process memory only. It is the
// configured backend when durable persistence is disabled, and doubles as
// the test stand-in for the real stores.
type MemorySnapshotStore struct {
	mu    sync.Mutex
	snap  *Snapshot
	saves int
}

// NewMemorySnapshotStore creates an empty in-memory snapshot store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

// Load returns the last saved snapshot, or (nil, nil) when none exists.
func (ms *MemorySnapshotStore) Load(_ context.Context) (*Snapshot, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.snap == nil {
		return nil, nil
	}
	snap := *ms.snap
	snap.Facts = append([]Fact(nil), ms.snap.Facts...)
	return &snap, nil
}

// Save replaces the held snapshot.
func (ms *MemorySnapshotStore) Save(_ context.Context, snap *Snapshot) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	copied := *snap
	copied.Facts = append([]Fact(nil), snap.Facts...)
	ms.snap = &copied
	ms.saves++
	return nil
}

// Saves returns how many saves have been performed.
func (ms *MemorySnapshotStore) Saves() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.saves
}
