package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"resilience-ai/internal/domain"
	"resilience-ai/internal/infra/tracer"
)

// defaultWorkerMaxIter bounds the LLM+tool loop when no limit is configured.
const defaultWorkerMaxIter = 10

// LLMAgentWorker implements domain.AgentWorker with an LLM reasoning loop.
// The model may request tools any number of times; the loop ends when it
// produces a plain assistant reply or the iteration cap is hit.
type LLMAgentWorker struct {
	identity domain.AgentIdentity
	provider domain.LLMProvider
	tools    domain.ToolExecutor
	bus      domain.EventBus
	logger   *slog.Logger
	maxIter  int
}

// NewLLMAgentWorker creates a worker. tools may be nil for agents that
// answer from the model alone.
func NewLLMAgentWorker(
	identity domain.AgentIdentity,
	provider domain.LLMProvider,
	tools domain.ToolExecutor,
	bus domain.EventBus,
	logger *slog.Logger,
	maxIter int,
) *LLMAgentWorker {
	if identity.MaxIter > 0 {
		maxIter = identity.MaxIter
	}
	if maxIter <= 0 {
		maxIter = defaultWorkerMaxIter
	}
	return &LLMAgentWorker{
		identity: identity,
		provider: provider,
		tools:    tools,
		bus:      bus,
		logger:   logger,
		maxIter:  maxIter,
	}
}

// ID implements domain.AgentWorker.
func (w *LLMAgentWorker) ID() string { return w.identity.ID }

// Run implements domain.AgentWorker. It returns exactly one new assistant
// message stamped with the agent's ID.
func (w *LLMAgentWorker) Run(ctx context.Context, msgs []domain.Message) (domain.Message, error) {
	ctx, span := tracer.StartSpan(ctx, "agent.run",
		tracer.StringAttr("agent.id", w.identity.ID),
	)
	defer span.End()

	working := make([]domain.Message, 0, len(msgs)+1)
	working = append(working, domain.Message{
		Role:    domain.RoleSystem,
		Content: w.identity.SystemPrompt,
	})
	working = append(working, msgs...)

	var schemas []domain.ToolSchema
	if w.tools != nil {
		schemas = w.tools.Schemas()
	}

	for iter := 0; iter < w.maxIter; iter++ {
		publishEvent(ctx, w.bus, domain.EventLLMCallStarted, map[string]any{
			"agent": w.identity.ID,
			"iter":  iter,
		})

		resp, err := w.provider.Chat(ctx, domain.ChatRequest{
			Messages: working,
			Tools:    schemas,
		})
		if err != nil {
			tracer.RecordError(span, err)
			return domain.Message{}, domain.NewDomainError("AgentWorker.Run", err, w.identity.ID)
		}

		publishEvent(ctx, w.bus, domain.EventLLMCallCompleted, map[string]any{
			"agent":  w.identity.ID,
			"iter":   iter,
			"tokens": resp.Usage.TotalTokens,
		})

		reply := resp.Message
		if len(reply.ToolCalls) == 0 {
			reply.Role = domain.RoleAssistant
			reply.Name = w.identity.ID
			if reply.Timestamp.IsZero() {
				reply.Timestamp = time.Now()
			}
			tracer.SetOK(span)
			return reply, nil
		}

		working = append(working, reply)
		for _, tc := range reply.ToolCalls {
			working = append(working, w.callTool(ctx, tc))
		}
	}

	err := domain.NewDomainError("AgentWorker.Run", domain.ErrMaxIterations,
		fmt.Sprintf("%s after %d iterations", w.identity.ID, w.maxIter))
	tracer.RecordError(span, err)
	return domain.Message{}, err
}

// callTool executes one tool call and folds the outcome into a tool
// message. Tool failures are reported to the model rather than aborting
// the run, so it can recover or rephrase.
func (w *LLMAgentWorker) callTool(ctx context.Context, tc domain.ToolCall) domain.Message {
	publishEvent(ctx, w.bus, domain.EventToolCallStarted, map[string]any{
		"agent": w.identity.ID,
		"tool":  tc.Name,
	})

	content := ""
	if w.tools == nil {
		content = fmt.Sprintf("Error: agent %s has no tools", w.identity.ID)
	} else if tool, err := w.tools.Get(tc.Name); err != nil {
		content = fmt.Sprintf("Error: unknown tool %q", tc.Name)
	} else if result, err := tool.Execute(ctx, tc.Arguments); err != nil {
		w.logger.Warn("tool execution failed",
			"agent", w.identity.ID,
			"tool", tc.Name,
			"error", err,
		)
		content = fmt.Sprintf("Error: %v", err)
	} else {
		content = result.Content
	}

	publishEvent(ctx, w.bus, domain.EventToolCallCompleted, map[string]any{
		"agent": w.identity.ID,
		"tool":  tc.Name,
	})

	return domain.Message{
		Role:      domain.RoleTool,
		Content:   content,
		Name:      tc.Name,
		ToolCalls: []domain.ToolCall{{ID: tc.ID}},
		Timestamp: time.Now(),
	}
}

var _ domain.AgentWorker = (*LLMAgentWorker)(nil)
