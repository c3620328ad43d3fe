package memory

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
)

// timeNow is swapped out in tests to simulate elapsed time.
var timeNow = time.Now

const (
	// ExactMatchThreshold is the similarity above which FindByContent
	// treats two statements as the same fact.
	ExactMatchThreshold = 0.8

	// SimilarThreshold is the default dedup threshold for FindSimilar.
	SimilarThreshold = 0.6
)

// Store owns the fact collection and session summary for the lifetime of
// the process. All operations are total over valid input and safe for
// concurrent use; an unknown id is reported as not-found, never a panic.
//
// Facts are kept in insertion order: FindSimilar returns the first match in
// that order, and context selection uses it as the stable tie-break.
type Store struct {
	mu      sync.RWMutex
	facts   []*Fact
	summary string
}

// NewStore creates an empty fact store.
func NewStore() *Store {
	return &Store{}
}

// AddFact creates a fact with initial confidence and appends it to the
// store. It performs no dedup check; callers reconcile against existing
// facts first.
func (s *Store) AddFact(content string, category Category) Fact {
	f := &Fact{
		ID:             NewFactID(),
		Content:        content,
		Category:       category,
		Confidence:     InitialConfidence,
		LastReinforced: timeNow(),
		ReinforceCount: 1,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts = append(s.facts, f)
	return *f
}

// FindByContent returns the fact whose content matches the query, either by
// trimmed case-insensitive exact match or by lexical similarity above
// ExactMatchThreshold. The returned fact is a copy.
func (s *Store) FindByContent(content string) (Fact, bool) {
	query := strings.ToLower(strings.TrimSpace(content))

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.facts {
		if strings.ToLower(strings.TrimSpace(f.Content)) == query {
			return *f, true
		}
		if Similarity(f.Content, content) > ExactMatchThreshold {
			return *f, true
		}
	}
	return Fact{}, false
}

// FindSimilar returns the first fact (insertion order) whose similarity to
// content meets or exceeds threshold. A threshold <= 0 uses
// SimilarThreshold. The returned fact is a copy.
func (s *Store) FindSimilar(content string, threshold float64) (Fact, bool) {
	if threshold <= 0 {
		threshold = SimilarThreshold
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.facts {
		if Similarity(f.Content, content) >= threshold {
			return *f, true
		}
	}
	return Fact{}, false
}

// Reinforce records fresh evidence for a fact: bumps the reinforcement
// count and decay anchor, and raises confidence with strictly diminishing
// returns (the boost divides by sqrt of the new count). Returns false if
// the id is unknown.
func (s *Store) Reinforce(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.lookup(id)
	if f == nil {
		return false
	}
	f.ReinforceCount++
	f.LastReinforced = timeNow()
	f.Confidence = clampConfidence(f.Confidence + ReinforcementBoost/math.Sqrt(float64(f.ReinforceCount)))
	return true
}

// Contradict records evidence against a fact, reducing confidence by a flat
// penalty. It does not touch LastReinforced or ReinforceCount: a
// contradiction is evidence of doubt, not of recency. Returns false if the
// id is unknown.
func (s *Store) Contradict(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.lookup(id)
	if f == nil {
		return false
	}
	f.Confidence = clampConfidence(f.Confidence - ContradictionPenalty)
	return true
}

// UpgradeToIdentity reclassifies a fact as identity. This is the only
// permitted category change: identity is authoritative and never
// downgraded. Returns false if the id is unknown.
func (s *Store) UpgradeToIdentity(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.lookup(id)
	if f == nil {
		return false
	}
	f.Category = CategoryIdentity
	return true
}

// ApplyDecay recomputes every fact's confidence for elapsed time since its
// last reinforcement and checkpoints the result, then prunes facts that
// fell below PruneThreshold. The decay anchor (LastReinforced) is left
// unchanged, so repeated applies at the same instant do not compound.
func (s *Store) ApplyDecay(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.facts[:0]
	for _, f := range s.facts {
		f.Confidence = decayedConfidence(f, now)
		f.decayedAt = now
		if f.Confidence >= PruneThreshold {
			kept = append(kept, f)
		}
	}
	s.facts = kept
}

// EffectiveConfidence is the read-only projection of a fact's confidence as
// of now: the same exponential decay ApplyDecay checkpoints, without
// mutating anything.
func EffectiveConfidence(f Fact, now time.Time) float64 {
	return decayedConfidence(&f, now)
}

func decayedConfidence(f *Fact, now time.Time) float64 {
	// Decay the interval not yet checkpointed into Confidence. The
	// anchor itself is never moved by decay; reinforcement resets it.
	since := f.LastReinforced
	if f.decayedAt.After(since) {
		since = f.decayedAt
	}
	days := now.Sub(since).Hours() / 24
	if days < 0 {
		days = 0
	}
	factor := math.Pow(1-decayRate(f.Category), days)
	return clampConfidence(f.Confidence * factor)
}

// Forget removes the fact with the given id, reporting whether it existed.
func (s *Store) Forget(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range s.facts {
		if f.ID == id {
			s.facts = append(s.facts[:i], s.facts[i+1:]...)
			return true
		}
	}
	return false
}

// ForgetMatching removes every fact whose content matches the glob pattern
// (case-insensitive) and returns how many were removed.
func (s *Store) ForgetMatching(pattern string) (int, error) {
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return 0, fmt.Errorf("memory: invalid forget pattern %q: %w", pattern, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	kept := s.facts[:0]
	for _, f := range s.facts {
		if g.Match(strings.ToLower(f.Content)) {
			removed++
			continue
		}
		kept = append(kept, f)
	}
	s.facts = kept
	return removed, nil
}

// Clear empties the store: all facts and the session summary.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts = nil
	s.summary = ""
}

// Facts returns a copy of all facts in insertion order.
func (s *Store) Facts() []Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Fact, len(s.facts))
	for i, f := range s.facts {
		out[i] = *f
	}
	return out
}

// Len returns the number of stored facts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.facts)
}

// Summary returns the current session summary.
func (s *Store) Summary() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// SetSummary wholly replaces the session summary.
func (s *Store) SetSummary(summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = summary
}

// lookup finds a fact by id. Caller must hold the lock.
func (s *Store) lookup(id string) *Fact {
	for _, f := range s.facts {
		if f.ID == id {
			return f
		}
	}
	return nil
}
