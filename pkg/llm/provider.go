// Package llm provides abstractions for LLM provider integration.
//
// Providers handle API communication with LLM services and return plain
// response text. This keeps providers focused on generation concerns
// without coupling them to the memory subsystem or session orchestration:
// the same provider backs both conversation replies and background fact
// extraction.
package llm

import "context"

// GenerateOptions carries per-request generation hints.
type GenerateOptions struct {
	// SystemInstruction is sent as the system message when non-empty.
	SystemInstruction string

	// PreferLocal asks the routing layer to favor a low-latency local
	// backend over a higher-quality remote one. It is a cost/latency
	// tradeoff hint, not a correctness requirement; providers without a
	// local backend ignore it.
	PreferLocal bool
}

// Provider defines the interface for LLM integrations.
//
// Generate sends a prompt and returns the complete response text. Failures
// are returned as errors and never panic; callers running background work
// (like memory analysis) are expected to contain them. Implementations
// must honor context cancellation, since an in-flight call may be
// abandoned on application shutdown.
type Provider interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}
