// Package openai provides an OpenAI-compatible LLM provider implementation.
//
// It works against the standard OpenAI API as well as any compatible
// endpoint (Azure, OpenRouter, llama.cpp servers) via WithBaseURL.
package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/lumehq/lume/pkg/llm"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// Provider implements llm.Provider for OpenAI-compatible APIs.
type Provider struct {
	client openai.Client
	model  string
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*providerConfig)

type providerConfig struct {
	model   string
	baseURL string
}

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(c *providerConfig) {
		c.model = model
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
func WithBaseURL(baseURL string) ProviderOption {
	return func(c *providerConfig) {
		c.baseURL = baseURL
	}
}

// NewProvider creates a new OpenAI provider with the given API key.
//
// If apiKey is empty it falls back to the OPENAI_API_KEY environment
// variable; if no base URL is configured, OPENAI_BASE_URL is consulted.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai: API key is required (parameter or OPENAI_API_KEY)")
	}

	cfg := &providerConfig{model: DefaultModel}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.baseURL == "" {
		cfg.baseURL = os.Getenv("OPENAI_BASE_URL")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &Provider{
		client: openai.NewClient(reqOpts...),
		model:  cfg.model,
	}, nil
}

// Generate sends a single-turn chat completion and returns the full
// response text.
func (p *Provider) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if opts.SystemInstruction != "" {
		messages = append(messages, openai.SystemMessage(opts.SystemInstruction))
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Model returns the configured model name.
func (p *Provider) Model() string {
	return p.model
}
