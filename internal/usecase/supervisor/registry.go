package supervisor

import (
	"log/slog"
	"sync"

	"resilience-ai/internal/domain"
)

// AgentInstance bundles a worker with its roster identity.
type AgentInstance struct {
	Identity domain.AgentIdentity
	Worker   domain.AgentWorker
}

// Registry holds the agent roster and provides worker lookup. Registration
// order is preserved: it is the keyword-fallback priority order.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*AgentInstance
	order  []string
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		agents: make(map[string]*AgentInstance),
		logger: logger,
	}
}

// Register adds an agent instance. Returns ErrDuplicate if the ID is taken.
func (r *Registry) Register(instance *AgentInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := instance.Identity.ID
	if _, exists := r.agents[id]; exists {
		return domain.ErrDuplicate
	}
	r.agents[id] = instance
	r.order = append(r.order, id)
	r.logger.Info("agent registered", "agent_id", id, "name", instance.Identity.Name)
	return nil
}

// Get returns the agent instance for the given ID, or ErrAgentNotFound.
func (r *Registry) Get(agentID string) (*AgentInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.agents[agentID]
	if !ok {
		return nil, domain.NewDomainError("Registry.Get", domain.ErrAgentNotFound, agentID)
	}
	return inst, nil
}

// Identities returns the roster in registration order.
func (r *Registry) Identities() []domain.AgentIdentity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.AgentIdentity, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id].Identity)
	}
	return out
}

// IDs returns the agent IDs in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// List returns a status snapshot for every registered agent, in roster order.
func (r *Registry) List() []domain.AgentStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]domain.AgentStatus, 0, len(r.order))
	for _, id := range r.order {
		inst := r.agents[id]
		statuses = append(statuses, domain.AgentStatus{
			ID:          inst.Identity.ID,
			Name:        inst.Identity.Name,
			Description: inst.Identity.Description,
			Dataset:     inst.Identity.Dataset,
		})
	}
	return statuses
}
