package memory

import (
	"context"
	"encoding/json"
	"time"
)

// Snapshot is the persisted form of a store: the full fact list plus the
// session summary. One snapshot exists per installation.
type Snapshot struct {
	Facts          []Fact `json:"facts"`
	SessionSummary string `json:"sessionSummary"`
}

// SnapshotStore is the persistence backend interface. Absence of durable
// persistence is a configuration choice (use NewMemorySnapshotStore), not
// a runtime probe.
type SnapshotStore interface {
	// Load returns the stored snapshot, or (nil, nil) when none exists.
	Load(ctx context.Context) (*Snapshot, error)
	// Save replaces the stored snapshot.
	Save(ctx context.Context, snap *Snapshot) error
}

// UnmarshalJSON migrates legacy snapshots transparently: early releases
// persisted facts as bare strings. A structured fact (anything with an id)
// passes through unchanged; a bare string is upgraded to a full fact with
// moderate confidence and a keyword-guessed category; anything else is
// dropped.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw struct {
		Facts          []json.RawMessage `json:"facts"`
		SessionSummary string            `json:"sessionSummary"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.SessionSummary = raw.SessionSummary
	s.Facts = nil
	now := timeNow()
	for _, el := range raw.Facts {
		var f Fact
		if err := json.Unmarshal(el, &f); err == nil && f.ID != "" {
			s.Facts = append(s.Facts, f)
			continue
		}

		var legacy string
		if err := json.Unmarshal(el, &legacy); err == nil && legacy != "" {
			s.Facts = append(s.Facts, migrateLegacyFact(legacy, now))
		}
	}
	return nil
}

// legacyMigratedConfidence is assigned to facts upgraded from the bare
// string format: better than a fresh observation, below reinforced ones.
const legacyMigratedConfidence = 0.6

func migrateLegacyFact(content string, now time.Time) Fact {
	return Fact{
		ID:             NewFactID(),
		Content:        content,
		Category:       GuessCategory(content),
		Confidence:     legacyMigratedConfidence,
		LastReinforced: now,
		ReinforceCount: 1,
	}
}

// Snapshot captures the store's current state for persistence.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		Facts:          make([]Fact, len(s.facts)),
		SessionSummary: s.summary,
	}
	for i, f := range s.facts {
		snap.Facts[i] = *f
	}
	return snap
}

// Restore replaces the store's contents with a snapshot and applies one
// decay pass so facts untouched since a previous run reflect elapsed real
// time before first use.
func (s *Store) Restore(snap *Snapshot) {
	s.mu.Lock()
	s.facts = make([]*Fact, 0, len(snap.Facts))
	for i := range snap.Facts {
		f := snap.Facts[i]
		s.facts = append(s.facts, &f)
	}
	s.summary = snap.SessionSummary
	s.mu.Unlock()

	s.ApplyDecay(timeNow())
}

// LoadStore builds a store from the persistence backend. A failed load is
// logged and yields an empty store, never an error: the companion starts
// with amnesia rather than crashing.
func LoadStore(ctx context.Context, snapshots SnapshotStore, log Logger) *Store {
	if log == nil {
		log = nopLogger{}
	}
	store := NewStore()
	if snapshots == nil {
		return store
	}

	snap, err := snapshots.Load(ctx)
	if err != nil {
		log.Errorf("memory snapshot load failed, starting empty: %v", err)
		return store
	}
	if snap == nil {
		return store
	}

	store.Restore(snap)
	log.Infof("memory loaded: %d facts", store.Len())
	return store
}
