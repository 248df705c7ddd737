package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/davenfield/loom/llmapi"
)

const workingDirHeader = "## WORKING DIRECTORY"

// WithWorkingDirectory appends a working-directory section to a system
// prompt, once. Prompts that already carry the section pass through
// unchanged.
func WithWorkingDirectory(prompt, dir string) string {
	if dir == "" || strings.Contains(prompt, workingDirHeader) {
		return prompt
	}
	return prompt + "\n\n" + workingDirHeader + "\n\n" +
		"The current working directory is: " + dir + "\n" +
		"Relative paths in tool calls are resolved against this directory."
}

// Conversation is the ordered message log for one task. It maintains two
// invariants: there is at most one system message, and when present it is
// the first element.
type Conversation struct {
	messages []llmapi.Message
}

// NewConversation creates an empty Conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// SetSystem installs content as the single leading system message,
// replacing any existing one.
func (c *Conversation) SetSystem(content string) {
	rest := c.messages[:0]
	for _, m := range c.messages {
		if m.Role != llmapi.RoleSystem {
			rest = append(rest, m)
		}
	}
	c.messages = append([]llmapi.Message{llmapi.SystemMessage(content)}, rest...)
}

// System returns the system message content, if one is present.
func (c *Conversation) System() (string, bool) {
	if len(c.messages) > 0 && c.messages[0].Role == llmapi.RoleSystem {
		return c.messages[0].Content, true
	}
	return "", false
}

// AddUser appends a user message.
func (c *Conversation) AddUser(content string) {
	c.messages = append(c.messages, llmapi.UserMessage(content))
}

// AddAssistant appends a plain assistant message.
func (c *Conversation) AddAssistant(content string) {
	c.messages = append(c.messages, llmapi.AssistantMessage(content))
}

// assistantEnvelope is the serialized form of an assistant turn that issued
// tool calls, so the batch survives round-trips through the plain-text
// message log.
type assistantEnvelope struct {
	Content   string                   `json:"content"`
	ToolCalls []llmapi.ToolCallRequest `json:"tool_calls"`
}

// AddAssistantWithToolCalls appends an assistant message carrying both text
// content and the issued tool-call batch.
func (c *Conversation) AddAssistantWithToolCalls(content string, calls []llmapi.ToolCallRequest) {
	if len(calls) == 0 {
		c.AddAssistant(content)
		return
	}
	raw, err := json.Marshal(assistantEnvelope{Content: content, ToolCalls: calls})
	if err != nil {
		c.AddAssistant(content)
		return
	}
	c.messages = append(c.messages, llmapi.AssistantMessage(string(raw)))
}

// AddToolResult appends the result of one tool call, tagged with its
// correlation id. Tool results are carried as user messages so every
// provider sees them regardless of native tool-result support.
func (c *Conversation) AddToolResult(toolCallID, output string) {
	c.messages = append(c.messages, llmapi.UserMessage(
		fmt.Sprintf("Tool result for call %s: %s", toolCallID, output)))
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []llmapi.Message {
	out := make([]llmapi.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int { return len(c.messages) }

// SetHistory replaces the log wholesale, re-establishing the system-first
// invariant. Extra system messages beyond the first are dropped.
func (c *Conversation) SetHistory(messages []llmapi.Message) {
	c.messages = c.messages[:0]
	var system *llmapi.Message
	for i := range messages {
		m := messages[i]
		if m.Role == llmapi.RoleSystem {
			if system == nil {
				system = &m
			}
			continue
		}
		c.messages = append(c.messages, m)
	}
	if system != nil {
		c.messages = append([]llmapi.Message{*system}, c.messages...)
	}
}
