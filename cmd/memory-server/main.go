package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cugtyt/agentloop/internal/config"
	"github.com/cugtyt/agentloop/internal/eventbus"
	"github.com/cugtyt/agentloop/internal/llminterface"
	"github.com/cugtyt/agentloop/internal/logger"
	"github.com/cugtyt/agentloop/internal/memory"
	"github.com/cugtyt/agentloop/internal/store"
)

type MemoryServer struct {
	store    store.Store
	eventBus eventbus.EventBus
	server   *memory.Server
	log      *logger.Logger
}

func NewMemoryServer(ctx context.Context, cfg *config.Config) (*MemoryServer, error) {
	log := logger.Named("memory-server")
	opts := store.Options{TTL: cfg.Memory.ContextTTL, MaxMessages: cfg.Memory.MaxMessages}

	var s store.Store
	if cfg.Memory.RedisURL == "" {
		log.Warn("REDIS_URL is empty, contexts are kept in process memory")
		s = store.NewMemoryStore(opts)
	} else {
		contextStore, err := store.NewContextStore(ctx, cfg.Memory.RedisURL, opts)
		if err != nil {
			return nil, err
		}
		s = contextStore
	}

	var bus eventbus.EventBus = eventbus.Nop{}
	if cfg.Events.NATSURL != "" {
		distributed, err := eventbus.NewDistributedEventBus(cfg.Events.NATSURL)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		bus = distributed
	}

	var completer llminterface.Completer
	if key := cfg.LLM.Key(); key != "" {
		completer = llminterface.NewOpenAIClient(key, cfg.LLM.BaseURL, cfg.LLM.Timeout)
	} else {
		log.Warn("no LLM credential configured, completion endpoint disabled")
	}

	handler := memory.NewHandler(s, completer, llminterface.CompletionOptions{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}, bus)

	return &MemoryServer{
		store:    s,
		eventBus: bus,
		server:   memory.NewServer(cfg.Memory.Port, handler),
		log:      log,
	}, nil
}

func (ms *MemoryServer) Close() {
	if err := ms.eventBus.Close(); err != nil {
		ms.log.Warnw("failed to close event bus", "error", err)
	}
	if err := ms.store.Close(); err != nil {
		ms.log.Warnw("failed to close store", "error", err)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Named("memory-server")

	ms, err := NewMemoryServer(context.Background(), cfg)
	if err != nil {
		log.Fatalw("failed to initialize memory server", "error", err)
	}

	go func() {
		if err := ms.server.Start(); err != nil {
			log.Fatalw("server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down memory server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := ms.server.Shutdown(ctx); err != nil {
		log.Warnw("server forced to shutdown", "error", err)
	}

	ms.Close()
	log.Info("memory server stopped")
}
