package config

import (
	"fmt"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateSupervisor(cfg, ve)
	validateLLM(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateGateway(cfg, ve)
	validateAgents(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateSupervisor(cfg *Config, ve *ValidationError) {
	if cfg.Supervisor.MaxRounds <= 0 {
		ve.Add("supervisor.max_rounds must be > 0")
	}
	if cfg.Supervisor.MaxRounds > 100 {
		ve.Add("supervisor.max_rounds must be <= 100")
	}
	if cfg.Supervisor.WorkerMaxIter <= 0 {
		ve.Add("supervisor.worker_max_iter must be > 0")
	}
	if cfg.Supervisor.Prompt == "" {
		ve.Add("supervisor.prompt must not be empty")
	}
}

func validateLLM(cfg *Config, ve *ValidationError) {
	if cfg.LLM.BaseURL == "" {
		ve.Add("llm.base_url must not be empty")
	}
	if cfg.LLM.Model == "" {
		ve.Add("llm.model must not be empty")
	}
	if cfg.LLM.ContextWindow <= 0 {
		ve.Add("llm.context_window must be > 0")
	}
	if cfg.LLM.MaxTokens < 0 {
		ve.Add("llm.max_tokens must be >= 0")
	}
	if cfg.LLM.MaxTokens >= cfg.LLM.ContextWindow && cfg.LLM.ContextWindow > 0 {
		ve.Add("llm.max_tokens must be smaller than llm.context_window")
	}
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Level) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		ve.Add("logger.level %q is not one of debug, info, warn, error", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "text", "json", "":
	default:
		ve.Add("logger.format %q is not one of text, json", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "stdout", "noop", "":
	default:
		ve.Add("tracer.exporter %q is not one of stdout, noop", cfg.Tracer.Exporter)
	}
}

func validateGateway(cfg *Config, ve *ValidationError) {
	if !cfg.Gateway.Enabled {
		return
	}
	if cfg.Gateway.Addr == "" {
		ve.Add("gateway.addr must not be empty when gateway is enabled")
	}
	if cfg.Gateway.RequestsPerMin <= 0 {
		ve.Add("gateway.requests_per_min must be > 0")
	}
	if cfg.Gateway.Burst <= 0 {
		ve.Add("gateway.burst must be > 0")
	}
}

func validateAgents(cfg *Config, ve *ValidationError) {
	if len(cfg.Agents) == 0 {
		ve.Add("agents must define at least one agent")
		return
	}
	seen := make(map[string]bool, len(cfg.Agents))
	for i, a := range cfg.Agents {
		if a.ID == "" {
			ve.Add("agents[%d].id must not be empty", i)
			continue
		}
		if strings.EqualFold(a.ID, "FINISH") {
			ve.Add("agents[%d].id %q collides with the finish sentinel", i, a.ID)
		}
		if seen[a.ID] {
			ve.Add("agents[%d].id %q is duplicated", i, a.ID)
		}
		seen[a.ID] = true
		if a.SystemPrompt == "" {
			ve.Add("agents[%d] (%s): system_prompt must not be empty", i, a.ID)
		}
		if a.MaxIter < 0 {
			ve.Add("agents[%d] (%s): max_iter must be >= 0", i, a.ID)
		}
	}
}
