// Package session orchestrates a single conversation session: it owns the
// rolling conversation buffer and the analyze-every-N-exchanges policy,
// schedules background analysis passes, and assembles the outgoing system
// prompt from the companion persona plus the memory digest.
//
// The fact store itself stays synchronous and policy-free; everything
// timing-related lives here, in the host's hands.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/lumehq/lume/pkg/memory"
)

// DefaultAnalyzeInterval is how many exchanges accumulate between analysis
// passes.
const DefaultAnalyzeInterval = 5

// Session ties one user's conversation to the memory subsystem.
type Session struct {
	store     *memory.Store
	buffer    *memory.Buffer
	analyzer  *memory.Analyzer
	snapshots memory.SnapshotStore
	log       memory.Logger

	interval    int
	tokenBudget int

	mu        sync.Mutex
	exchanges int

	triggers  chan struct{}
	startOnce sync.Once
}

// Option configures a Session.
type Option func(*Session)

// WithAnalyzeInterval overrides the exchanges-per-analysis cadence.
func WithAnalyzeInterval(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.interval = n
		}
	}
}

// WithPromptTokenBudget caps the rendered memory section; 0 disables the
// cap.
func WithPromptTokenBudget(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.tokenBudget = n
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(log memory.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// New creates a session over an already-loaded store. snapshots may be nil
// when durable persistence is disabled.
func New(store *memory.Store, buffer *memory.Buffer, analyzer *memory.Analyzer, snapshots memory.SnapshotStore, opts ...Option) *Session {
	s := &Session{
		store:     store,
		buffer:    buffer,
		analyzer:  analyzer,
		snapshots: snapshots,
		log:       nopLogger{},
		interval:  DefaultAnalyzeInterval,
		// A single slot: while a pass is pending or running, further
		// triggers are dropped, not queued. The next exchange after
		// the pass completes re-triggers naturally.
		triggers: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the background analysis worker. It returns immediately;
// the worker exits when ctx is cancelled. Calling Start more than once is
// a no-op.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.worker(ctx)
	})
}

func (s *Session) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.triggers:
			if err := s.analyzer.Analyze(ctx); err != nil {
				// Contained by design: the conversation flow never
				// sees memory failures.
				s.log.Warnf("background analysis failed: %v", err)
			}
		}
	}
}

// AddExchange records one user/assistant exchange and triggers a
// background analysis pass every interval exchanges. The trigger is
// fire-and-forget: if the worker is busy the trigger is dropped and a
// later exchange re-triggers.
func (s *Session) AddExchange(userText, assistantText string) {
	s.buffer.AddExchange(userText, assistantText)

	s.mu.Lock()
	s.exchanges++
	fire := s.exchanges%s.interval == 0
	s.mu.Unlock()

	if fire {
		select {
		case s.triggers <- struct{}{}:
		default:
			// Drop: a pass is already pending.
		}
	}
}

// SystemPrompt appends the memory digest to the companion's base persona.
// With no usable facts and no summary the base persona is returned
// unchanged.
func (s *Session) SystemPrompt(base string) string {
	section := memory.FormatContext(s.store.Context(time.Now()), s.tokenBudget)
	if section == "" {
		return base
	}
	return base + "\n\n" + section
}

// Forget removes one fact by id, reporting whether it existed.
func (s *Session) Forget(id string) bool {
	return s.store.Forget(id)
}

// ForgetMatching removes facts whose content matches a glob pattern.
func (s *Session) ForgetMatching(pattern string) (int, error) {
	return s.store.ForgetMatching(pattern)
}

// ClearMemory wipes all facts and the session summary.
func (s *Session) ClearMemory() {
	s.store.Clear()
}

// Save persists the current store state immediately, e.g. on shutdown.
// Failures are logged and returned; in-memory state is never rolled back.
func (s *Session) Save(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}
	if err := s.snapshots.Save(ctx, s.store.Snapshot()); err != nil {
		s.log.Errorf("session save failed: %v", err)
		return err
	}
	return nil
}
