package domain

import "context"

// Finish is the sentinel destination meaning the conversation has its
// final answer and no further agent should run.
const Finish = "FINISH"

// KeywordRule maps a literal keyword or phrase to an agent.
// Rules are evaluated in declaration order; the first match wins.
type KeywordRule struct {
	Keyword string `json:"keyword" yaml:"keyword"`
	AgentID string `json:"agent_id" yaml:"agent_id"`
}

// Router decides the next destination for a conversation: an agent ID
// or Finish.
type Router interface {
	Route(ctx context.Context, msgs []Message) (string, error)
}

// AgentWorker consumes a conversation and produces exactly one new
// assistant message. Implementations may call the LLM and tools any
// number of times internally.
type AgentWorker interface {
	Run(ctx context.Context, msgs []Message) (Message, error)
	ID() string
}
