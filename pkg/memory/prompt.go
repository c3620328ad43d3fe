package memory

import (
	"strings"
	"sync"

	"github.com/lumehq/lume/pkg/llm/tokenizer"
)

// promptBuckets is the fixed rendering order: identity first as most
// reliable, projects last as most volatile.
var promptBuckets = []Category{
	CategoryIdentity,
	CategoryPreferences,
	CategoryConstraints,
	CategoryProjects,
}

var bucketHeadings = map[Category]string{
	CategoryIdentity:    "Identity:",
	CategoryPreferences: "Preferences:",
	CategoryConstraints: "Constraints:",
	CategoryProjects:    "Current projects:",
}

var (
	tokenizerOnce sync.Once
	promptTokens  *tokenizer.Tokenizer
)

// FormatContext renders a memory context into the prompt text appended to
// the companion's system instruction. Facts are grouped into the four fixed
// category buckets (unrecognized categories fold into preferences) and
// phrased by effective confidence: high facts verbatim, medium prefixed
// "Likely:", low prefixed "Possibly:".
//
// When tokenBudget is positive the rendered section is kept within it by
// dropping the lowest-confidence facts first. An empty context renders as
// the empty string so the prompt carries no empty-section noise.
func FormatContext(ctx Context, tokenBudget int) string {
	facts := ctx.Facts
	for {
		section := renderSection(facts, ctx.SessionSummary)
		if section == "" || tokenBudget <= 0 || len(facts) == 0 {
			return section
		}
		if countTokens(section) <= tokenBudget {
			return section
		}
		// Over budget: sacrifice the lowest-priority fact and retry.
		facts = facts[:len(facts)-1]
	}
}

func renderSection(facts []ContextFact, summary string) string {
	if len(facts) == 0 && summary == "" {
		return ""
	}

	grouped := make(map[Category][]ContextFact)
	for _, f := range facts {
		bucket := f.Category
		if _, ok := bucketHeadings[bucket]; !ok {
			bucket = CategoryPreferences
		}
		grouped[bucket] = append(grouped[bucket], f)
	}

	var sb strings.Builder
	sb.WriteString("What you remember about your user:\n")
	for _, bucket := range promptBuckets {
		group := grouped[bucket]
		if len(group) == 0 {
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(bucketHeadings[bucket])
		sb.WriteString("\n")
		for _, f := range group {
			sb.WriteString("- ")
			sb.WriteString(phrase(f))
			sb.WriteString("\n")
		}
	}

	if summary != "" {
		sb.WriteString("\nRecent conversation summary:\n")
		sb.WriteString(summary)
		sb.WriteString("\n")
	}
	return sb.String()
}

// phrase applies confidence-aware hedging to a fact's content.
func phrase(f ContextFact) string {
	switch {
	case f.Effective >= HighConfidence:
		return f.Content
	case f.Effective >= MediumConfidence:
		if hasHedgeWord(f.Content) {
			return f.Content
		}
		return "Likely: " + f.Content
	default:
		return "Possibly: " + f.Content
	}
}

// hasHedgeWord reports whether content already carries its own uncertainty.
func hasHedgeWord(content string) bool {
	for _, w := range strings.Fields(strings.ToLower(content)) {
		switch strings.Trim(w, ".,;:!?") {
		case "may", "might", "possibly":
			return true
		}
	}
	return false
}

// countTokens measures prompt text with the shared tokenizer. The
// tokenizer degrades to estimation on init failure, so the budget stays
// roughly enforced rather than abandoned.
func countTokens(text string) int {
	tokenizerOnce.Do(func() {
		promptTokens, _ = tokenizer.New()
	})
	return promptTokens.CountText(text)
}
