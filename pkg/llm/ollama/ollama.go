// Package ollama provides a local LLM provider backed by an Ollama server.
// It is the low-latency backend used when callers hint PreferLocal.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/lumehq/lume/pkg/llm"
)

// DefaultBaseURL is the standard local Ollama endpoint.
const DefaultBaseURL = "http://localhost:11434"

// Provider implements llm.Provider against a local Ollama server.
type Provider struct {
	client *api.Client
	model  string
}

// NewProvider creates an Ollama provider for the given model. An empty
// baseURL uses DefaultBaseURL.
func NewProvider(model, baseURL string) (*Provider, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama: model is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama: invalid base URL: %w", err)
	}

	hc := &http.Client{Timeout: 120 * time.Second}
	return &Provider{client: api.NewClient(parsed, hc), model: model}, nil
}

// Generate runs a non-streaming generation against the local server.
func (p *Provider) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	stream := false
	var sb strings.Builder

	err := p.client.Generate(ctx, &api.GenerateRequest{
		Model:  p.model,
		Prompt: prompt,
		System: opts.SystemInstruction,
		Stream: &stream,
	}, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama: generate: %w", err)
	}
	return sb.String(), nil
}

// Model returns the configured model name.
func (p *Provider) Model() string {
	return p.model
}
