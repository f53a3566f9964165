package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"resilience-ai/internal/adapter/dataset"
	"resilience-ai/internal/adapter/llm"
	"resilience-ai/internal/domain"
	"resilience-ai/internal/infra/config"
	"resilience-ai/internal/infra/logger"
	"resilience-ai/internal/infra/tracer"
	"resilience-ai/internal/usecase"
	"resilience-ai/internal/usecase/eventbus"
	"resilience-ai/internal/usecase/supervisor"
)

// App bundles the wired application components.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Supervisor *supervisor.Supervisor
	Registry   *supervisor.Registry
	Datasets   *dataset.SQLiteStore

	bus       domain.EventBus
	reaper    *usecase.SessionReaper
	closeLog  func() error
	closeTrac func(context.Context) error
}

// buildApp loads configuration and wires every component.
func buildApp(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigLoad, err)
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, err
	}

	closeTrac, err := tracer.Setup(context.Background(), cfg.Tracer)
	if err != nil {
		closeLog()
		return nil, err
	}

	bus := eventbus.New(log)

	store, err := dataset.NewSQLiteStore(cfg.Datasets.DBPath, log)
	if err != nil {
		closeLog()
		return nil, err
	}

	counter := usecase.NewTokenCounter(cfg.LLM.Model, log)

	var provider domain.LLMProvider = llm.NewOpenAIProvider(cfg.LLM, log)
	provider = llm.NewCircuitBreakerProvider(provider, cfg.LLM.CircuitBreaker, log)
	provider = llm.NewShapingProvider(provider, counter, cfg.LLM.ContextWindow, cfg.LLM.MaxTokens)

	registry := supervisor.NewRegistry(log)
	roster := make([]domain.AgentIdentity, 0, len(cfg.Agents))
	for _, a := range cfg.Agents {
		identity := domain.AgentIdentity{
			ID:           a.ID,
			Name:         a.Name,
			Description:  a.Description,
			SystemPrompt: a.SystemPrompt,
			Dataset:      a.Dataset,
			Keywords:     a.Keywords,
			MaxIter:      a.MaxIter,
		}
		roster = append(roster, identity)

		var tools domain.ToolExecutor
		if a.Dataset != "" {
			tools = usecase.DatasetTools(store, a.Dataset)
		}
		worker := usecase.NewLLMAgentWorker(identity, provider, tools, bus, log, cfg.Supervisor.WorkerMaxIter)
		if err := registry.Register(&supervisor.AgentInstance{Identity: identity, Worker: worker}); err != nil {
			closeLog()
			store.Close()
			return nil, err
		}
	}

	router := supervisor.NewLLMRouter(provider, cfg.Supervisor.Prompt, roster, log)
	sessions := usecase.NewSessionManager(cfg.Sessions.DataDir)

	sup := supervisor.New(router, registry, sessions, usecase.NewSessionLocker(), bus, log, supervisor.Options{
		MaxRounds:   cfg.Supervisor.MaxRounds,
		SingleReply: cfg.Supervisor.SingleReplyEnabled(),
	})

	reaper, err := usecase.NewSessionReaper(sessions, bus, log, cfg.Sessions.ReapSchedule, cfg.Sessions.ReapAfter)
	if err != nil {
		closeLog()
		store.Close()
		return nil, err
	}
	reaper.Start()

	return &App{
		Config:     cfg,
		Logger:     log,
		Supervisor: sup,
		Registry:   registry,
		Datasets:   store,
		bus:        bus,
		reaper:     reaper,
		closeLog:   closeLog,
		closeTrac:  closeTrac,
	}, nil
}

// Close releases every resource in reverse wiring order.
func (a *App) Close() {
	a.reaper.Stop()
	a.bus.Close()
	if err := a.Datasets.Close(); err != nil {
		a.Logger.Warn("dataset store close failed", "error", err)
	}
	if a.closeTrac != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.closeTrac(ctx); err != nil {
			a.Logger.Warn("tracer shutdown failed", "error", err)
		}
	}
	a.closeLog()
}
