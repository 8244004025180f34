package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cugtyt/agentloop/internal/agent"
	"github.com/cugtyt/agentloop/internal/config"
	"github.com/cugtyt/agentloop/internal/eventbus"
	"github.com/cugtyt/agentloop/internal/llminterface"
	"github.com/cugtyt/agentloop/internal/logger"
	"github.com/cugtyt/agentloop/internal/metrics"
	"github.com/cugtyt/agentloop/internal/tools"
	"github.com/cugtyt/agentloop/internal/toolserver"
	"github.com/cugtyt/agentloop/pkg/api"
)

type AgentRuntime struct {
	cfg       *config.Config
	eventBus  eventbus.EventBus
	completer llminterface.Completer
	bindings  map[string]tools.Binding
	metrics   *http.Server
	log       *logger.Logger
}

func NewAgentRuntime(cfg *config.Config) (*AgentRuntime, error) {
	bindings, err := tools.ParseBindings(cfg.ToolServer.Bindings)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOOL_BINDINGS: %w", err)
	}

	ar := &AgentRuntime{
		cfg:       cfg,
		eventBus:  eventbus.Nop{},
		completer: llminterface.NewOpenAIClient(cfg.LLM.Key(), cfg.LLM.BaseURL, cfg.LLM.Timeout),
		bindings:  bindings,
		log:       logger.Named("agent-runtime"),
	}

	if cfg.Events.NATSURL != "" {
		bus, err := eventbus.NewDistributedEventBus(cfg.Events.NATSURL)
		if err != nil {
			ar.log.Warnw("event bus unavailable, continuing without events", "error", err)
		} else {
			ar.eventBus = bus
		}
	}

	if cfg.App.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		ar.metrics = &http.Server{Addr: cfg.App.MetricsAddr, Handler: mux}

		go func() {
			if err := ar.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				ar.log.Warnw("metrics server failed", "error", err)
			}
		}()
	}

	return ar, nil
}

func (ar *AgentRuntime) Close() {
	if ar.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ar.metrics.Shutdown(ctx)
	}
	if err := ar.eventBus.Close(); err != nil {
		ar.log.Warnw("failed to close event bus", "error", err)
	}
}

// Run holds one tool server session for the whole interactive loop.
func (ar *AgentRuntime) Run(ctx context.Context) error {
	sessionCfg := toolserver.Config{
		Command: ar.cfg.ToolServer.Command,
		Args:    ar.cfg.ToolServer.Args,
		Env:     ar.cfg.ToolServer.Env,
	}

	return toolserver.WithSession(ctx, sessionCfg, func(ctx context.Context, session *toolserver.Session) error {
		registry, err := tools.Discover(ctx, session)
		if err != nil {
			return err
		}

		fmt.Printf("Tools available: %s\n", strings.Join(registry.Names(), ", "))
		for _, name := range registry.Missing(ar.cfg.ToolServer.RequiredTools) {
			fmt.Printf("Tool '%s' not found!\n", name)
		}

		conversation, err := ar.newConversation(ctx)
		if err != nil {
			return err
		}

		dispatcher := tools.NewDispatcher(registry, session, tools.DispatcherOptions{
			Bindings:       ar.bindings,
			MaxOutputChars: ar.cfg.ToolServer.MaxOutputChars,
			CallTimeout:    ar.cfg.ToolServer.CallTimeout,
		})

		a := agent.New(ar.completer, registry, dispatcher, conversation, agent.Options{
			Completion: llminterface.CompletionOptions{
				Model:       ar.cfg.LLM.Model,
				Temperature: ar.cfg.LLM.Temperature,
				MaxTokens:   ar.cfg.LLM.MaxTokens,
			},
			EventBus: ar.eventBus,
		})

		return repl(ctx, a, os.Stdin, os.Stdout)
	})
}

func (ar *AgentRuntime) newConversation(ctx context.Context) (agent.Conversation, error) {
	if ar.cfg.Memory.URL == "" {
		return agent.NewMemoryConversation(), nil
	}

	client := api.NewClient(ar.cfg.Memory.URL)
	if _, err := client.GetHealth(ctx); err != nil {
		return nil, fmt.Errorf("memory service at %s: %w", ar.cfg.Memory.URL, err)
	}

	conversation, err := agent.NewRemoteConversation(ctx, client)
	if err != nil {
		return nil, err
	}
	ar.log.Infow("using remote conversation", "context_id", conversation.ID(), "url", ar.cfg.Memory.URL)
	return conversation, nil
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		fmt.Printf("Error: failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.ValidateAgent(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ar, err := NewAgentRuntime(cfg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	defer ar.Close()

	return report(ar.Run(ctx), os.Stdout)
}
