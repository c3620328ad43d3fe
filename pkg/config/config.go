// Package config manages Lume's on-disk configuration: LLM provider
// settings, memory subsystem tuning, and the user-data directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Memory backend names selectable in MemoryConfig.Backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// LLMConfig holds generation backend settings. The remote provider is any
// OpenAI-compatible endpoint; the local provider is an Ollama server used
// for background work when configured.
type LLMConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`

	LocalModel   string `yaml:"local_model"`
	LocalBaseURL string `yaml:"local_base_url"`
}

// MemoryConfig tunes the long-term memory subsystem.
type MemoryConfig struct {
	// Backend selects the snapshot store: file (default), sqlite, or
	// memory (no durable persistence).
	Backend string `yaml:"backend"`

	// AnalyzeInterval is how many conversation exchanges accumulate
	// before an analysis pass is triggered.
	AnalyzeInterval int `yaml:"analyze_interval"`

	// BufferPairs bounds the rolling conversation window, in exchanges.
	BufferPairs int `yaml:"buffer_pairs"`

	// PromptTokenBudget caps the rendered memory section; 0 disables
	// the cap.
	PromptTokenBudget int `yaml:"prompt_token_budget"`
}

// Config is the root configuration document.
type Config struct {
	DataDir string       `yaml:"data_dir"`
	LLM     LLMConfig    `yaml:"llm"`
	Memory  MemoryConfig `yaml:"memory"`
}

// Default returns the configuration used when no file exists yet.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Model: "gpt-4o-mini",
		},
		Memory: MemoryConfig{
			Backend:           BackendFile,
			AnalyzeInterval:   5,
			BufferPairs:       10,
			PromptTokenBudget: 1500,
		},
	}
}

// DefaultPath returns ~/.lume/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".lume", "config.yaml"), nil
}

// DefaultDataDir returns ~/.lume, the application's private user-data
// directory.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".lume"), nil
}

// Load reads the configuration file at path, filling unset fields with
// defaults. A missing file yields the defaults without error.
func Load(path string) (*Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the configuration atomically: temp file then rename.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("config: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("config: atomic rename: %w", err)
	}
	return nil
}

// applyDefaults backfills zero values after a partial config file load.
func (c *Config) applyDefaults() {
	def := Default()
	if c.LLM.Model == "" {
		c.LLM.Model = def.LLM.Model
	}
	if c.Memory.Backend == "" {
		c.Memory.Backend = def.Memory.Backend
	}
	if c.Memory.AnalyzeInterval <= 0 {
		c.Memory.AnalyzeInterval = def.Memory.AnalyzeInterval
	}
	if c.Memory.BufferPairs <= 0 {
		c.Memory.BufferPairs = def.Memory.BufferPairs
	}
	if c.Memory.PromptTokenBudget < 0 {
		c.Memory.PromptTokenBudget = 0
	}
}

// Validate rejects unusable configurations early.
func (c *Config) Validate() error {
	switch c.Memory.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("config: unknown memory backend %q", c.Memory.Backend)
	}
	return nil
}
