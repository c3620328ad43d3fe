package memory

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/lumehq/lume/pkg/llm"
)

// analyzerSystemPrompt is the fixed persona for the extraction model.
const analyzerSystemPrompt = `You are a memory analyzer for a desktop companion. You read a short ` +
	`conversation window and maintain the companion's long-term knowledge about the user. ` +
	`Extract only durable facts (identity, preferences, constraints, projects), note which existing ` +
	`facts are reinforced or contradicted, and write a one-paragraph session summary. ` +
	`Respond with a single JSON object and nothing else.`

// Logger is the narrow logging surface the memory subsystem uses. It is
// satisfied by *logging.Logger.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// Analyzer runs background extraction passes: it prompts the LLM with the
// recent conversation window plus the store's current beliefs, parses the
// structured output defensively, and reconciles the results into the store.
//
// At most one pass runs at a time; a call while a pass is in flight is a
// silent no-op. Failures are contained within the pass and never corrupt
// the store.
type Analyzer struct {
	store     *Store
	buffer    *Buffer
	provider  llm.Provider
	snapshots SnapshotStore
	log       Logger

	analyzing atomic.Bool
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithLogger sets the logger used for pass diagnostics.
func WithLogger(log Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if log != nil {
			a.log = log
		}
	}
}

// NewAnalyzer creates an analyzer over the given store and conversation
// buffer. The snapshot store receives one save attempt at the end of every
// pass that actually ran; pass nil to skip persistence entirely.
func NewAnalyzer(store *Store, buffer *Buffer, provider llm.Provider, snapshots SnapshotStore, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		store:     store,
		buffer:    buffer,
		provider:  provider,
		snapshots: snapshots,
		log:       nopLogger{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyzing reports whether a pass is currently in flight.
func (a *Analyzer) Analyzing() bool {
	return a.analyzing.Load()
}

// Analyze runs one extraction pass. A call while another pass is in flight
// returns immediately with no error, no mutation, and no save attempt; the
// next conversation turn will re-trigger analysis naturally.
//
// A save is attempted exactly once per pass that ran, whether the pass
// succeeded or aborted partway. The returned error is diagnostic only;
// callers triggering fire-and-forget should log it and move on.
func (a *Analyzer) Analyze(ctx context.Context) error {
	if !a.analyzing.CompareAndSwap(false, true) {
		a.log.Debugf("analysis already in flight, skipping")
		return nil
	}

	// Consume the buffered window up front: turns are never replayed,
	// even when the pass fails. An empty window ends the pass before any
	// model call or save attempt.
	conversation := a.buffer.Render()
	a.buffer.Clear()
	if conversation == "" {
		a.analyzing.Store(false)
		return nil
	}
	defer func() {
		a.persist(ctx)
		a.analyzing.Store(false)
	}()

	prompt := a.buildPrompt(conversation)

	response, err := a.provider.Generate(ctx, prompt, llm.GenerateOptions{
		SystemInstruction: analyzerSystemPrompt,
		// Extraction is a background task: favor the cheap local backend.
		PreferLocal: true,
	})
	if err != nil {
		a.log.Warnf("analysis generation failed: %v", err)
		return fmt.Errorf("memory: analysis generation: %w", err)
	}

	result, err := parseAnalysis(response)
	if err != nil {
		// A single malformed response must never corrupt memory: abort
		// at the parse boundary with the store untouched.
		a.log.Warnf("analysis response unparseable: %v", err)
		return err
	}

	a.reconcile(result)
	return nil
}

// buildPrompt composes the analysis prompt from the store's usable facts,
// the current summary, and the conversation window.
func (a *Analyzer) buildPrompt(conversation string) string {
	var sb strings.Builder

	sb.WriteString("Known facts about the user:\n")
	now := timeNow()
	usable := 0
	for _, f := range a.store.Facts() {
		// Facts below the usable floor are hidden from the model: they
		// must be independently re-observed, not rubber-stamped.
		if EffectiveConfidence(f, now) < MinUsable {
			continue
		}
		fmt.Fprintf(&sb, "- [%s] %s\n", f.Category, f.Content)
		usable++
	}
	if usable == 0 {
		sb.WriteString("(none yet)\n")
	}

	if summary := a.store.Summary(); summary != "" {
		sb.WriteString("\nPrevious session summary:\n")
		sb.WriteString(summary)
		sb.WriteString("\n")
	}

	sb.WriteString("\nConversation:\n")
	sb.WriteString(conversation)
	sb.WriteString("\n\nRespond with JSON: {\"facts\": [{\"content\": string, \"category\": " +
		"\"identity\"|\"preferences\"|\"constraints\"|\"projects\", \"reinforces\": string|null, " +
		"\"contradicts\": string|null}], \"session_summary\": string}")
	return sb.String()
}

// reconcile applies one parsed analysis result to the store. An explicit
// model-declared reinforcement link is trusted over the heuristic
// similarity match; a contradiction does not prevent the candidate from
// also being inserted as a new fact.
func (a *Analyzer) reconcile(result *analysisResult) {
	for _, c := range result.Facts {
		content := strings.TrimSpace(c.Content)
		if content == "" {
			continue
		}

		if c.Reinforces != "" {
			if target, ok := a.store.FindByContent(c.Reinforces); ok {
				a.store.Reinforce(target.ID)
				continue
			}
			// Stale reference: ignore the directive, keep processing
			// the candidate itself.
		}

		if c.Contradicts != "" {
			if target, ok := a.store.FindByContent(c.Contradicts); ok {
				a.store.Contradict(target.ID)
			}
		}

		if match, ok := a.store.FindSimilar(content, SimilarThreshold); ok {
			a.store.Reinforce(match.ID)
			if NormalizeCategory(c.Category) == CategoryIdentity && match.Category != CategoryIdentity {
				a.store.UpgradeToIdentity(match.ID)
			}
			continue
		}

		a.store.AddFact(content, NormalizeCategory(c.Category))
	}

	if summary := strings.TrimSpace(result.SessionSummary); summary != "" {
		a.store.SetSummary(summary)
	}
}

// persist attempts the per-pass snapshot save. Save failures are logged and
// otherwise invisible: the in-memory store carries on until the next
// successful save.
func (a *Analyzer) persist(ctx context.Context) {
	if a.snapshots == nil {
		return
	}
	if err := a.snapshots.Save(ctx, a.store.Snapshot()); err != nil {
		a.log.Errorf("memory snapshot save failed: %v", err)
	}
}
