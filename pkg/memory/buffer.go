package memory

import (
	"strings"
	"sync"
)

// Role identifies the speaker of a buffered conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultBufferPairs is the default rolling-window capacity in
// user/assistant exchange pairs.
const DefaultBufferPairs = 10

// Turn is a single ephemeral conversation entry. Turns are never persisted.
type Turn struct {
	Role    Role
	Content string
}

// Buffer is a bounded rolling window of recent conversation turns. When the
// window is full the oldest exchange pair is evicted first. The buffer is
// session-scoped and cleared after every analysis trigger, whether or not
// the analysis succeeds.
type Buffer struct {
	mu       sync.Mutex
	turns    []Turn
	maxPairs int
}

// NewBuffer creates a buffer holding at most maxPairs exchange pairs.
// A maxPairs <= 0 uses DefaultBufferPairs.
func NewBuffer(maxPairs int) *Buffer {
	if maxPairs <= 0 {
		maxPairs = DefaultBufferPairs
	}
	return &Buffer{maxPairs: maxPairs}
}

// AddExchange appends one user/assistant pair, evicting the oldest pair if
// the window is full.
func (b *Buffer) AddExchange(userText, assistantText string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.turns = append(b.turns,
		Turn{Role: RoleUser, Content: userText},
		Turn{Role: RoleAssistant, Content: assistantText},
	)
	if max := b.maxPairs * 2; len(b.turns) > max {
		b.turns = b.turns[len(b.turns)-max:]
	}
}

// Turns returns a copy of the buffered turns, oldest first.
func (b *Buffer) Turns() []Turn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Turn(nil), b.turns...)
}

// Len returns the number of buffered turns (not pairs).
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.turns)
}

// Render formats the buffered turns as "ROLE: content" lines for the
// analysis prompt.
func (b *Buffer) Render() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var sb strings.Builder
	for i, t := range b.turns {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strings.ToUpper(string(t.Role)))
		sb.WriteString(": ")
		sb.WriteString(t.Content)
	}
	return sb.String()
}

// Clear drops all buffered turns. Consumed turns are never replayed.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.turns = nil
}
