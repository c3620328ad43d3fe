package memory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category classifies the kind of knowledge a fact encodes.
type Category string

const (
	CategoryIdentity    Category = "identity"
	CategoryPreferences Category = "preferences"
	CategoryConstraints Category = "constraints"
	CategoryProjects    Category = "projects"
)

const (
	// MaxConfidence is the ceiling for any fact's confidence. The store
	// never claims certainty about anything it learned from conversation.
	MaxConfidence = 0.95

	// InitialConfidence is assigned to every newly extracted fact.
	InitialConfidence = 0.5

	// ReinforcementBoost is the base confidence gain on reinforcement,
	// divided by sqrt(ReinforceCount) for diminishing returns.
	ReinforcementBoost = 0.15

	// ContradictionPenalty is the flat confidence loss when the model
	// reports evidence against a stored fact.
	ContradictionPenalty = 0.3

	// MinUsable is the effective-confidence floor below which a fact is
	// excluded from context and from the analyzer's view of the store.
	MinUsable = 0.2

	// HighConfidence marks facts stated verbatim in the prompt.
	HighConfidence = 0.7

	// MediumConfidence marks facts hedged with "Likely:" in the prompt.
	MediumConfidence = 0.4

	// PruneThreshold is the hard floor; facts decaying below it are
	// removed entirely on the next decay pass.
	PruneThreshold = MinUsable / 2
)

// DecayRates is the fraction of confidence lost per day, compounding, by
// category. Identity facts are assumed stable; project facts go stale
// quickly if not reinforced.
var DecayRates = map[Category]float64{
	CategoryIdentity:    0.005,
	CategoryPreferences: 0.02,
	CategoryConstraints: 0.01,
	CategoryProjects:    0.05,
}

// Fact is a single piece of durable knowledge about the user. Its JSON
// form is fixed by the snapshot format (see factJSON); LastReinforced is
// persisted as a millisecond epoch.
type Fact struct {
	ID             string
	Content        string
	Category       Category
	Confidence     float64
	LastReinforced time.Time
	ReinforceCount int

	// decayedAt marks how far decay has already been checkpointed into
	// Confidence, so repeated ApplyDecay passes never compound. It is
	// process-local: snapshots carry only the checkpointed confidence,
	// and one decay pass runs right after load.
	decayedAt time.Time
}

// factJSON is the persisted wire form of a Fact.
type factJSON struct {
	ID             string   `json:"id"`
	Content        string   `json:"content"`
	Category       Category `json:"category"`
	Confidence     float64  `json:"confidence"`
	LastReinforced int64    `json:"lastReinforced"`
	ReinforceCount int      `json:"reinforceCount"`
}

// MarshalJSON encodes the fact in the snapshot wire format, with the
// decay anchor as a millisecond epoch.
func (f Fact) MarshalJSON() ([]byte, error) {
	var ms int64
	if !f.LastReinforced.IsZero() {
		ms = f.LastReinforced.UnixMilli()
	}
	return json.Marshal(factJSON{
		ID:             f.ID,
		Content:        f.Content,
		Category:       f.Category,
		Confidence:     f.Confidence,
		LastReinforced: ms,
		ReinforceCount: f.ReinforceCount,
	})
}

// UnmarshalJSON decodes the snapshot wire format.
func (f *Fact) UnmarshalJSON(data []byte) error {
	var w factJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*f = Fact{
		ID:             w.ID,
		Content:        w.Content,
		Category:       w.Category,
		Confidence:     w.Confidence,
		LastReinforced: time.UnixMilli(w.LastReinforced).UTC(),
		ReinforceCount: w.ReinforceCount,
	}
	return nil
}

// NewFactID generates a unique fact identifier.
func NewFactID() string {
	return fmt.Sprintf("fact_%s", uuid.New().String())
}

// decayRate returns the per-day decay rate for a category. Unknown
// categories decay like preferences, the same bucket they fold into
// at prompt time.
func decayRate(c Category) float64 {
	if r, ok := DecayRates[c]; ok {
		return r
	}
	return DecayRates[CategoryPreferences]
}

// NormalizeCategory maps arbitrary model-supplied category strings onto the
// known set, folding anything unrecognized into preferences.
func NormalizeCategory(s string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryIdentity:
		return CategoryIdentity
	case CategoryPreferences:
		return CategoryPreferences
	case CategoryConstraints:
		return CategoryConstraints
	case CategoryProjects:
		return CategoryProjects
	default:
		return CategoryPreferences
	}
}

// GuessCategory infers a category for a legacy fact that was stored as a
// bare string, using keyword heuristics.
func GuessCategory(content string) Category {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "name is"),
		strings.Contains(lower, "works as"),
		strings.Contains(lower, "works at"),
		strings.Contains(lower, "lives in"):
		return CategoryIdentity
	case strings.Contains(lower, "project"),
		strings.Contains(lower, "building"),
		strings.Contains(lower, "developing"):
		return CategoryProjects
	case strings.Contains(lower, "budget"),
		strings.Contains(lower, "deadline"),
		strings.Contains(lower, "cannot"),
		strings.Contains(lower, "can't"):
		return CategoryConstraints
	default:
		return CategoryPreferences
	}
}

// clampConfidence bounds a confidence value to [0, MaxConfidence].
func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}
