package llm

import (
	"context"
	"fmt"
)

// Router composes a remote and an optional local provider behind the
// Provider interface. Requests hinting PreferLocal try the local backend
// first and quietly fall back to remote on failure, so a stopped local
// server degrades quality and latency but never correctness.
type Router struct {
	remote Provider
	local  Provider
}

// NewRouter creates a router. remote may be nil for local-only setups;
// local may be nil when no local backend is configured.
func NewRouter(remote, local Provider) *Router {
	return &Router{remote: remote, local: local}
}

// Generate routes the request per opts.PreferLocal.
func (r *Router) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if opts.PreferLocal && r.local != nil {
		out, err := r.local.Generate(ctx, prompt, opts)
		if err == nil {
			return out, nil
		}
		if r.remote == nil {
			return "", err
		}
	}

	if r.remote != nil {
		return r.remote.Generate(ctx, prompt, opts)
	}
	if r.local != nil {
		return r.local.Generate(ctx, prompt, opts)
	}
	return "", fmt.Errorf("llm: no provider configured")
}
