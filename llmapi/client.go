package llmapi

import "context"

// ApiClient is the provider boundary consumed by the agent executor.
// Implementations handle wire formats and transient-failure retry; callers
// see only text, tool-call requests, and typed errors.
type ApiClient interface {
	// Complete returns generated text for a plain conversation.
	Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error)

	// CompleteWithTools returns generated text plus zero or more tool-call
	// requests. priorResults, when non-nil, are the results of the previous
	// turn's tool calls and are folded into the request before sending.
	CompleteWithTools(ctx context.Context, messages []Message, opts CompletionOptions, priorResults []ToolResult) (string, []ToolCallRequest, error)
}
