package domain

// AgentIdentity describes a named domain agent in the roster.
// The keyword list doubles as the router's deterministic fallback table;
// roster order is fallback priority order.
type AgentIdentity struct {
	ID           string   `json:"id"            yaml:"id"`
	Name         string   `json:"name"          yaml:"name"`
	Description  string   `json:"description"   yaml:"description"`
	SystemPrompt string   `json:"system_prompt" yaml:"system_prompt"`
	Dataset      string   `json:"dataset,omitempty"  yaml:"dataset,omitempty"`
	Keywords     []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	MaxIter      int      `json:"max_iter,omitempty" yaml:"max_iter,omitempty"`
}

// AgentStatus is a read-only snapshot of a registered agent.
type AgentStatus struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Dataset     string `json:"dataset,omitempty"`
}
