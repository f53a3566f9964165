package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"resilience-ai/internal/domain"
	"resilience-ai/internal/infra/tracer"
	"resilience-ai/internal/usecase"
)

// defaultMaxRounds caps router/agent round trips per ask.
const defaultMaxRounds = 20

// Options tunes the supervisor loop.
type Options struct {
	// MaxRounds is the hard ceiling on router/agent round trips.
	MaxRounds int
	// SingleReply finishes the conversation once an agent has replied,
	// without asking the router again.
	SingleReply bool
}

// Result is the outcome of one ask.
type Result struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
	Rounds    int    `json:"rounds"`
	// Trace lists the nodes that ran, in order: "supervisor" per routing
	// decision, agent IDs per worker execution.
	Trace []string `json:"trace,omitempty"`
	// Degraded is set when the round ceiling forced completion.
	Degraded bool `json:"degraded,omitempty"`
}

// Supervisor orchestrates the router/agent alternation for each question.
// One worker runs at a time; concurrent asks on the same session are
// serialized by the session locker.
type Supervisor struct {
	router   domain.Router
	registry *Registry
	sessions *usecase.SessionManager
	locker   *usecase.SessionLocker
	bus      domain.EventBus
	logger   *slog.Logger
	opts     Options
}

// New creates a supervisor.
func New(
	router domain.Router,
	registry *Registry,
	sessions *usecase.SessionManager,
	locker *usecase.SessionLocker,
	bus domain.EventBus,
	logger *slog.Logger,
	opts Options,
) *Supervisor {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = defaultMaxRounds
	}
	return &Supervisor{
		router:   router,
		registry: registry,
		sessions: sessions,
		locker:   locker,
		bus:      bus,
		logger:   logger,
		opts:     opts,
	}
}

// Ask runs one question through the loop to completion and returns the
// extracted answer. An empty sessionID starts a fresh session; a known one
// resumes its conversation.
func (s *Supervisor) Ask(ctx context.Context, question, sessionID string) (*Result, error) {
	if question == "" {
		return nil, domain.NewDomainError("Supervisor.Ask", domain.ErrInvalidInput, "empty question")
	}

	session := s.sessions.GetOrCreate(sessionID)
	ctx = domain.ContextWithSessionID(ctx, session.ID)

	unlock, err := s.locker.Lock(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ctx, span := tracer.StartSpan(ctx, "supervisor.ask",
		tracer.StringAttr("session.id", session.ID),
	)
	defer span.End()

	session.AddMessage(domain.Message{
		Role:      domain.RoleUser,
		Content:   question,
		Timestamp: time.Now(),
	})
	s.publish(ctx, domain.EventMessageReceived, map[string]any{"question": question})

	rounds, trace, degraded, err := s.runLoop(ctx, session)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	answer := Extract(session.Messages(), question)
	s.publish(ctx, domain.EventMessageSent, map[string]any{"rounds": rounds, "degraded": degraded})

	if err := s.sessions.Save(session.ID); err != nil {
		s.logger.Warn("session save failed", "session_id", session.ID, "error", err)
	}

	span.SetAttributes(tracer.IntAttr("supervisor.rounds", rounds))
	tracer.SetOK(span)

	return &Result{
		Text:      answer,
		SessionID: session.ID,
		Rounds:    rounds,
		Trace:     trace,
		Degraded:  degraded,
	}, nil
}

// runLoop drives the state machine until the router finishes or the round
// ceiling trips. The returned error is only for conditions that abort the
// invocation; agent failures become error-content messages instead.
func (s *Supervisor) runLoop(ctx context.Context, session *usecase.Session) (rounds int, trace []string, degraded bool, err error) {
	for rounds = 0; rounds < s.opts.MaxRounds; rounds++ {
		// Cancellation is honored between round trips.
		if err := ctx.Err(); err != nil {
			return rounds, trace, false, fmt.Errorf("ask cancelled: %w", err)
		}

		msgs := session.Messages()

		// Once an agent has replied, a second routing call mostly produces
		// supervisor/agent ping-pong. Finish directly.
		if s.opts.SingleReply && domain.LastRole(msgs) == domain.RoleAssistant && len(msgs) > 2 {
			s.logger.Debug("single reply policy, finishing", "session_id", session.ID)
			return rounds, trace, false, nil
		}

		trace = append(trace, "supervisor")
		dest, err := s.router.Route(ctx, msgs)
		if err != nil {
			return rounds, trace, false, err
		}
		s.publish(ctx, domain.EventRoutingDecided, map[string]any{"destination": dest, "round": rounds})

		if dest == domain.Finish {
			return rounds, trace, false, nil
		}

		inst, err := s.registry.Get(dest)
		if err != nil {
			return rounds, trace, false, err
		}

		trace = append(trace, dest)
		s.runAgent(ctx, session, inst)
	}

	s.logger.Warn("round ceiling reached, forcing completion",
		"session_id", session.ID,
		"max_rounds", s.opts.MaxRounds,
	)
	s.publish(ctx, domain.EventLoopDegraded, map[string]any{"max_rounds": s.opts.MaxRounds})
	return rounds, trace, true, nil
}

// runAgent executes one worker. A worker failure appends an error-content
// assistant message so the state machine still progresses.
func (s *Supervisor) runAgent(ctx context.Context, session *usecase.Session, inst *AgentInstance) {
	agentID := inst.Identity.ID
	s.publish(ctx, domain.EventAgentStarted, map[string]any{"agent": agentID})

	reply, err := inst.Worker.Run(ctx, session.Messages())
	if err != nil {
		s.logger.Error("agent execution failed", "agent", agentID, "error", err)
		s.publish(ctx, domain.EventAgentError, map[string]any{
			"agent": agentID,
			"code":  string(domain.ErrorCodeOf(err)),
		})
		reply = domain.Message{
			Role:      domain.RoleAssistant,
			Content:   fmt.Sprintf("Error: agent %s failed: %v", agentID, err),
			Name:      agentID,
			Timestamp: time.Now(),
		}
	} else {
		s.publish(ctx, domain.EventAgentCompleted, map[string]any{"agent": agentID})
	}

	session.AddMessage(reply)
}

func (s *Supervisor) publish(ctx context.Context, typ domain.EventType, payload map[string]any) {
	if s.bus == nil {
		return
	}
	var raw json.RawMessage
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			raw = data
		}
	}
	s.bus.Publish(ctx, domain.Event{
		Type:      typ,
		Timestamp: time.Now(),
		SessionID: domain.SessionIDFromContext(ctx),
		Payload:   raw,
	})
}
