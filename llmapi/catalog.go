package llmapi

import "strings"

// ModelInfo describes a known model in the catalog.
type ModelInfo struct {
	ID            string   `json:"id"`
	Provider      string   `json:"provider"`
	DisplayName   string   `json:"display_name"`
	Description   string   `json:"description"`
	ContextWindow int      `json:"context_window"`
	AgentCapable  bool     `json:"agent_capable"` // reliable tool use for agent tasks
	Aliases       []string `json:"aliases,omitempty"`
}

// Models is the built-in model catalog (February 2026).
var Models = []ModelInfo{
	// Anthropic
	{
		ID: "claude-opus-4-6", Provider: "anthropic", DisplayName: "Claude Opus 4.6",
		Description:   "Strongest coding model, best for long agent tasks",
		ContextWindow: 200000, AgentCapable: true,
		Aliases: []string{"opus", "claude-opus"},
	},
	{
		ID: "claude-sonnet-4-5", Provider: "anthropic", DisplayName: "Claude Sonnet 4.5",
		Description:   "Fast general-purpose coding model",
		ContextWindow: 200000, AgentCapable: true,
		Aliases: []string{"sonnet", "claude-sonnet"},
	},

	// OpenAI
	{
		ID: "gpt-5.2", Provider: "openai", DisplayName: "GPT-5.2",
		Description:   "Flagship OpenAI model",
		ContextWindow: 1047576, AgentCapable: true,
		Aliases: []string{"gpt5"},
	},
	{
		ID: "gpt-5.2-mini", Provider: "openai", DisplayName: "GPT-5.2 Mini",
		Description:   "Cheaper OpenAI model; fine for short tasks, weaker on agent loops",
		ContextWindow: 1047576, AgentCapable: false,
		Aliases: []string{"gpt5-mini"},
	},
}

// GetModelInfo returns the catalog entry for a model id or alias, or nil if
// unknown.
func GetModelInfo(modelID string) *ModelInfo {
	for i := range Models {
		m := &Models[i]
		if m.ID == modelID {
			return m
		}
		for _, a := range m.Aliases {
			if a == modelID {
				return m
			}
		}
	}
	return nil
}

// ListModels returns all catalog entries for a provider; an empty provider
// returns everything.
func ListModels(provider string) []ModelInfo {
	if provider == "" {
		out := make([]ModelInfo, len(Models))
		copy(out, Models)
		return out
	}
	var out []ModelInfo
	for _, m := range Models {
		if strings.EqualFold(m.Provider, provider) {
			out = append(out, m)
		}
	}
	return out
}

// DefaultAgentModel returns the first agent-capable model for a provider,
// or nil if none is known.
func DefaultAgentModel(provider string) *ModelInfo {
	for i := range Models {
		if strings.EqualFold(Models[i].Provider, provider) && Models[i].AgentCapable {
			return &Models[i]
		}
	}
	return nil
}
