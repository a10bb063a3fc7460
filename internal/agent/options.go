package agent

import (
	"encoding/json"
	"log/slog"

	"github.com/haasonsaas/nexus/internal/bus"
)

// AgentConfig carries the ambient, non-algorithmic settings of an agent:
// identity, the system-prompt fallback, logging, and bus sizing. Behavior
// that affects turn semantics lives in TurnEngineConfig instead.
type AgentConfig struct {
	// Name identifies the agent for logging and multi-agent routing.
	Name string

	// Description is the system prompt used when a Task doesn't supply its
	// own SystemPrompt.
	Description string

	// OutputSchema, when set, constrains the shape of every LLM response
	// this agent accepts: it is passed through to chat/chat_with_tools on
	// every turn, and a text response that doesn't validate against it is
	// rejected as a SchemaError rather than completing the turn.
	OutputSchema json.RawMessage

	// Logger receives agent diagnostics.
	Logger *slog.Logger

	// BusCapacity bounds the agent's owned event bus. 0 uses bus.DefaultCapacity.
	BusCapacity int
}

// DefaultAgentConfig returns the baseline agent configuration.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Logger:      slog.Default(),
		BusCapacity: bus.DefaultCapacity,
	}
}

func mergeAgentConfig(base, override AgentConfig) AgentConfig {
	merged := base
	if override.Name != "" {
		merged.Name = override.Name
	}
	if override.Description != "" {
		merged.Description = override.Description
	}
	if len(override.OutputSchema) > 0 {
		merged.OutputSchema = override.OutputSchema
	}
	if override.Logger != nil {
		merged.Logger = override.Logger
	}
	if override.BusCapacity > 0 {
		merged.BusCapacity = override.BusCapacity
	}
	return merged
}
