package memory

import (
	"sort"
	"time"
)

// ContextFact is a fact paired with its effective confidence as of the
// context query time.
type ContextFact struct {
	Fact
	Effective float64
}

// Context is the filtered, prioritized view of the store handed to prompt
// construction.
type Context struct {
	Facts          []ContextFact
	SessionSummary string
}

// Context selects the usable facts as of now: effective confidence at or
// above MinUsable, sorted descending with insertion order as the stable
// tie-break. It is a pure read; pruning only happens via ApplyDecay.
func (s *Store) Context(now time.Time) Context {
	var out []ContextFact
	for _, f := range s.Facts() {
		eff := EffectiveConfidence(f, now)
		if eff < MinUsable {
			continue
		}
		out = append(out, ContextFact{Fact: f, Effective: eff})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Effective > out[j].Effective
	})

	return Context{Facts: out, SessionSummary: s.Summary()}
}
