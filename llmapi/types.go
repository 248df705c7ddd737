package llmapi

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a conversation sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a system Message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user Message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant Message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolDefinition describes a tool for the model (serializable metadata).
// The parameter schema is JSON Schema expressed as a generic map.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolCallRequest is a model-issued request to invoke a tool. The ID may be
// empty: some providers omit it, in which case the executor synthesizes a
// deterministic correlation id from the call's position in the batch.
type ToolCallRequest struct {
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolResult is the outcome of executing one tool call. Exactly one result
// is produced per request, carrying the same correlation id even on failure
// (the output then describes the error).
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// CompletionOptions configures a single completion request.
//
// Tools and JSONSchema are mutually exclusive on some providers. When both
// are set, implementations silently prefer JSONSchema and drop the tool
// list rather than erroring.
type CompletionOptions struct {
	Temperature    *float64         `json:"temperature,omitempty"`
	TopP           *float64         `json:"top_p,omitempty"`
	MaxTokens      *int             `json:"max_tokens,omitempty"`
	Tools          []ToolDefinition `json:"tools,omitempty"`
	RequireToolUse bool             `json:"require_tool_use,omitempty"`
	JSONSchema     string           `json:"json_schema,omitempty"`
}

// Float64 returns a pointer to v, for use in CompletionOptions literals.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v, for use in CompletionOptions literals.
func Int(v int) *int { return &v }
