package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumehq/lume/pkg/llm"
)

// fakeProvider is a scriptable llm.Provider for analyzer tests.
type fakeProvider struct {
	mu         sync.Mutex
	response   string
	err        error
	block      chan struct{} // when non-nil, Generate waits until closed
	calls      int
	lastPrompt string
	lastOpts   llm.GenerateOptions
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastPrompt = prompt
	f.lastOpts = opts
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.response, f.err
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestAnalyzer(t *testing.T, response string) (*Analyzer, *Store, *Buffer, *fakeProvider, *MemorySnapshotStore) {
	t.Helper()
	freezeTime(t, testEpoch)
	store := NewStore()
	buffer := NewBuffer(10)
	provider := &fakeProvider{response: response}
	snapshots := NewMemorySnapshotStore()
	return NewAnalyzer(store, buffer, provider, snapshots), store, buffer, provider, snapshots
}

func TestAnalyzeInsertsNewFacts(t *testing.T) {
	a, store, buffer, provider, snapshots := newTestAnalyzer(t, `{
		"facts": [{"content": "User's name is Alex", "category": "identity"}],
		"session_summary": "introductions"}`)
	buffer.AddExchange("hi, I'm Alex", "nice to meet you!")

	require.NoError(t, a.Analyze(context.Background()))

	require.Equal(t, 1, store.Len())
	f := store.Facts()[0]
	assert.Equal(t, "User's name is Alex", f.Content)
	assert.Equal(t, CategoryIdentity, f.Category)
	assert.Equal(t, InitialConfidence, f.Confidence)
	assert.Equal(t, "introductions", store.Summary())
	assert.Equal(t, 1, snapshots.Saves())
	assert.Equal(t, 0, buffer.Len(), "consumed turns are not replayed")

	assert.True(t, provider.lastOpts.PreferLocal, "extraction favors the local backend")
	assert.NotEmpty(t, provider.lastOpts.SystemInstruction)
}

func TestAnalyzeDeduplicatesBySimilarity(t *testing.T) {
	a, store, buffer, _, _ := newTestAnalyzer(t, `{
		"facts": [{"content": "User likes tea", "category": "preferences"}],
		"session_summary": ""}`)
	existing := store.AddFact("User likes tea", CategoryPreferences)
	buffer.AddExchange("I do love tea", "noted!")

	require.NoError(t, a.Analyze(context.Background()))

	require.Equal(t, 1, store.Len(), "similar candidate reinforces instead of duplicating")
	f := store.Facts()[0]
	assert.Equal(t, existing.ID, f.ID)
	assert.Equal(t, 2, f.ReinforceCount)
	assert.Greater(t, f.Confidence, InitialConfidence)
}

func TestAnalyzeExplicitReinforceTakesPriority(t *testing.T) {
	a, store, buffer, _, _ := newTestAnalyzer(t, `{
		"facts": [{"content": "User really likes tea a lot", "category": "preferences",
			"reinforces": "User likes tea"}],
		"session_summary": ""}`)
	existing := store.AddFact("User likes tea", CategoryPreferences)
	buffer.AddExchange("tea again please", "coming right up")

	require.NoError(t, a.Analyze(context.Background()))

	require.Equal(t, 1, store.Len())
	f := store.Facts()[0]
	assert.Equal(t, existing.ID, f.ID)
	assert.Equal(t, 2, f.ReinforceCount, "reinforced exactly once, not twice")
}

func TestAnalyzeContradictAndInsertAreIndependent(t *testing.T) {
	// A candidate may contradict an old belief and still be inserted as a
	// new fact. This dual effect is intended behavior.
	a, store, buffer, _, _ := newTestAnalyzer(t, `{
		"facts": [{"content": "User now works at Globex Corporation", "category": "identity",
			"contradicts": "User works at Initech"}],
		"session_summary": ""}`)
	store.Restore(&Snapshot{Facts: []Fact{{
		ID:             "fact_old",
		Content:        "User works at Initech",
		Category:       CategoryIdentity,
		Confidence:     0.6,
		LastReinforced: testEpoch,
		ReinforceCount: 2,
	}}})
	buffer.AddExchange("I changed jobs, I'm at Globex now", "congratulations!")

	require.NoError(t, a.Analyze(context.Background()))

	require.Equal(t, 2, store.Len())
	old := store.Facts()[0]
	assert.InDelta(t, 0.3, old.Confidence, 1e-9)
	assert.Equal(t, "User now works at Globex Corporation", store.Facts()[1].Content)
}

func TestAnalyzeUpgradesCategoryToIdentity(t *testing.T) {
	a, store, buffer, _, _ := newTestAnalyzer(t, `{
		"facts": [{"content": "Alex is a nurse", "category": "identity"}],
		"session_summary": ""}`)
	store.AddFact("Alex is a nurse", CategoryPreferences)
	buffer.AddExchange("I work as a nurse", "that must be demanding")

	require.NoError(t, a.Analyze(context.Background()))

	require.Equal(t, 1, store.Len())
	assert.Equal(t, CategoryIdentity, store.Facts()[0].Category,
		"identity is authoritative and wins over the earlier guess")
}

func TestAnalyzeIgnoresStaleReferences(t *testing.T) {
	a, store, buffer, _, _ := newTestAnalyzer(t, `{
		"facts": [{"content": "User loves snow", "category": "preferences",
			"reinforces": "User hates rain", "contradicts": "User enjoys summer"}],
		"session_summary": ""}`)
	buffer.AddExchange("snow is the best", "winter fan, noted")

	require.NoError(t, a.Analyze(context.Background()))

	// Both referenced facts are long gone; the candidate itself still
	// lands.
	require.Equal(t, 1, store.Len())
	assert.Equal(t, "User loves snow", store.Facts()[0].Content)
}

func TestAnalyzeSkipsEmptyCandidates(t *testing.T) {
	a, store, buffer, _, _ := newTestAnalyzer(t, `{
		"facts": [{"content": "   ", "category": "preferences"}, {"content": "", "category": "identity"}],
		"session_summary": ""}`)
	buffer.AddExchange("hmm", "hmm indeed")

	require.NoError(t, a.Analyze(context.Background()))
	assert.Equal(t, 0, store.Len())
}

func TestAnalyzeMalformedResponseLeavesStoreUntouched(t *testing.T) {
	a, store, buffer, _, snapshots := newTestAnalyzer(t, "I forgot how to produce JSON today.")
	store.AddFact("User likes tea", CategoryPreferences)
	store.SetSummary("tea talk")
	buffer.AddExchange("more tea", "sure")

	before := store.Facts()
	err := a.Analyze(context.Background())

	assert.ErrorIs(t, err, ErrNoJSON)
	assert.Equal(t, before, store.Facts())
	assert.Equal(t, "tea talk", store.Summary())
	assert.Equal(t, 0, buffer.Len(), "window is consumed even on failure")
	assert.Equal(t, 1, snapshots.Saves(), "one save attempt per pass that ran")
}

func TestAnalyzeGenerationFailure(t *testing.T) {
	a, store, buffer, provider, _ := newTestAnalyzer(t, "")
	provider.err = errors.New("backend unavailable")
	store.AddFact("User likes tea", CategoryPreferences)
	buffer.AddExchange("hello", "hi")

	err := a.Analyze(context.Background())

	assert.Error(t, err)
	assert.Equal(t, 1, store.Len())
	assert.False(t, a.Analyzing(), "state resets even when the pass fails")
}

func TestAnalyzeEmptyBufferIsNoOp(t *testing.T) {
	a, _, _, provider, snapshots := newTestAnalyzer(t, "{}")

	require.NoError(t, a.Analyze(context.Background()))

	assert.Equal(t, 0, provider.callCount())
	assert.Equal(t, 0, snapshots.Saves())
}

func TestAnalyzeConcurrentCallIsNoOp(t *testing.T) {
	a, store, buffer, provider, snapshots := newTestAnalyzer(t, `{
		"facts": [{"content": "User plays piano", "category": "preferences"}],
		"session_summary": ""}`)
	provider.block = make(chan struct{})
	buffer.AddExchange("I play piano", "lovely")

	done := make(chan error, 1)
	go func() { done <- a.Analyze(context.Background()) }()

	require.Eventually(t, a.Analyzing, time.Second, time.Millisecond,
		"first pass should be in flight")

	// Second call while the first is suspended: silent no-op.
	require.NoError(t, a.Analyze(context.Background()))
	assert.Equal(t, 1, provider.callCount())
	assert.Equal(t, 0, snapshots.Saves())

	close(provider.block)
	require.NoError(t, <-done)

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, snapshots.Saves(), "no duplicate save from the skipped call")
	assert.False(t, a.Analyzing())
}

func TestAnalyzeHidesLowConfidenceFactsFromModel(t *testing.T) {
	a, store, buffer, provider, _ := newTestAnalyzer(t, `{"facts": [], "session_summary": ""}`)
	store.Restore(&Snapshot{Facts: []Fact{
		{
			ID: "fact_low", Content: "User maybe owns a parrot", Category: CategoryPreferences,
			Confidence: 0.15, LastReinforced: testEpoch, ReinforceCount: 1,
		},
		{
			ID: "fact_high", Content: "User's name is Alex", Category: CategoryIdentity,
			Confidence: 0.8, LastReinforced: testEpoch, ReinforceCount: 3,
		},
	}})
	buffer.AddExchange("hello again", "welcome back")

	require.NoError(t, a.Analyze(context.Background()))

	assert.Contains(t, provider.lastPrompt, "User's name is Alex")
	assert.NotContains(t, provider.lastPrompt, "parrot",
		"low-confidence facts must be re-observed, not rubber-stamped")
}

func TestAnalyzeKeepsSummaryWhenResponseOmitsIt(t *testing.T) {
	a, store, buffer, _, _ := newTestAnalyzer(t, `{"facts": [], "session_summary": "  "}`)
	store.SetSummary("previous summary")
	buffer.AddExchange("hi", "hello")

	require.NoError(t, a.Analyze(context.Background()))
	assert.Equal(t, "previous summary", store.Summary())
}
