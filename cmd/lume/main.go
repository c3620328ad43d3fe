// Package main provides the Lume headless chat loop: a terminal front end
// that wires the companion persona, LLM providers, and the long-term
// memory subsystem together. Avatar rendering and voice output live in the
// desktop shell, not here.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lumehq/lume/pkg/config"
	"github.com/lumehq/lume/pkg/llm"
	"github.com/lumehq/lume/pkg/llm/ollama"
	"github.com/lumehq/lume/pkg/llm/openai"
	"github.com/lumehq/lume/pkg/logging"
	"github.com/lumehq/lume/pkg/memory"
	"github.com/lumehq/lume/pkg/session"
)

const version = "0.1.0"

// persona is the companion's base system instruction; the session appends
// the memory digest to it per request.
const persona = `You are Lume, a friendly desktop companion. You chat naturally, remember what ` +
	`you learn about your user over time, and keep replies short and warm.`

func main() {
	var (
		configPath  string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file (YAML)")
	flag.BoolVar(&showVersion, "version", false, "Show version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("Lume v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()
	}()

	if err := run(ctx, configPath); err != nil {
		fmt.Fprintf(os.Stderr, "lume: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	if configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		configPath = p
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.DataDir == "" {
		cfg.DataDir, err = config.DefaultDataDir()
		if err != nil {
			return err
		}
	}

	log, logErr := logging.NewLogger("lume")
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "warning: file logging unavailable: %v\n", logErr)
	}
	defer log.Close()

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	snapshots, err := buildSnapshotStore(cfg)
	if err != nil {
		return err
	}
	if closer, ok := snapshots.(io.Closer); ok {
		defer closer.Close()
	}

	store := memory.LoadStore(ctx, snapshots, log)
	buffer := memory.NewBuffer(cfg.Memory.BufferPairs)
	analyzer := memory.NewAnalyzer(store, buffer, provider, snapshots, memory.WithLogger(log))

	sess := session.New(store, buffer, analyzer, snapshots,
		session.WithAnalyzeInterval(cfg.Memory.AnalyzeInterval),
		session.WithPromptTokenBudget(cfg.Memory.PromptTokenBudget),
		session.WithLogger(log),
	)
	sess.Start(ctx)

	return runSession(ctx, os.Stdin, provider, sess)
}

// runSession runs the chat loop and always persists memory on the way out,
// even when the loop fails: facts learned since the last analysis pass must
// survive an abrupt exit. The save failure itself is already logged.
func runSession(ctx context.Context, in io.Reader, provider llm.Provider, sess *session.Session) error {
	defer func() { _ = sess.Save(context.Background()) }()
	return chatLoop(ctx, in, provider, sess)
}

// buildProvider assembles the remote/local provider router from config.
func buildProvider(cfg *config.Config) (llm.Provider, error) {
	var remote, local llm.Provider

	if cfg.LLM.APIKey != "" || os.Getenv("OPENAI_API_KEY") != "" {
		var opts []openai.ProviderOption
		if cfg.LLM.Model != "" {
			opts = append(opts, openai.WithModel(cfg.LLM.Model))
		}
		if cfg.LLM.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.LLM.BaseURL))
		}
		p, err := openai.NewProvider(cfg.LLM.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		remote = p
	}

	if cfg.LLM.LocalModel != "" {
		p, err := ollama.NewProvider(cfg.LLM.LocalModel, cfg.LLM.LocalBaseURL)
		if err != nil {
			return nil, err
		}
		local = p
	}

	if remote == nil && local == nil {
		return nil, fmt.Errorf("no LLM backend configured: set llm.api_key (or OPENAI_API_KEY) or llm.local_model")
	}
	return llm.NewRouter(remote, local), nil
}

// buildSnapshotStore selects the persistence backend from config.
func buildSnapshotStore(cfg *config.Config) (memory.SnapshotStore, error) {
	switch cfg.Memory.Backend {
	case config.BackendSQLite:
		return memory.NewSQLSnapshotStore(cfg.DataDir)
	case config.BackendMemory:
		return memory.NewMemorySnapshotStore(), nil
	default:
		return memory.NewFileSnapshotStore(cfg.DataDir)
	}
}

// chatLoop reads user turns from in until EOF or cancellation.
func chatLoop(ctx context.Context, in io.Reader, provider llm.Provider, sess *session.Session) error {
	scanner := bufio.NewScanner(in)
	fmt.Println("Lume is listening. Say something (Ctrl-D to quit).")

	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		userText := strings.TrimSpace(scanner.Text())
		if userText == "" {
			continue
		}

		reply, err := provider.Generate(ctx, userText, llm.GenerateOptions{
			SystemInstruction: sess.SystemPrompt(persona),
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
			continue
		}

		fmt.Printf("lume> %s\n", reply)
		sess.AddExchange(userText, reply)
	}
}
