package llmapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teilomillet/gollm"
)

// GollmClient is the live ApiClient implementation. It wraps a gollm.LLM
// instance, translating conversations and tool catalogs into gollm prompts
// and classifying gollm errors into the package's error taxonomy. Every
// provider call goes through the retrying invoker.
type GollmClient struct {
	provider string
	model    string
	llm      gollm.LLM
	policy   RetryPolicy
}

// GollmClientOption configures a GollmClient.
type GollmClientOption func(*gollmClientConfig)

type gollmClientConfig struct {
	apiKey    string
	model     string
	maxTokens int
	policy    RetryPolicy
	extraOpts []gollm.ConfigOption
}

// WithAPIKey sets the provider API key. When empty, gollm reads it from the
// provider's environment variable.
func WithAPIKey(key string) GollmClientOption {
	return func(c *gollmClientConfig) { c.apiKey = key }
}

// WithModel sets the model identifier.
func WithModel(model string) GollmClientOption {
	return func(c *gollmClientConfig) { c.model = model }
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) GollmClientOption {
	return func(c *gollmClientConfig) { c.policy = p }
}

// WithGollmOptions appends extra gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmClientOption {
	return func(c *gollmClientConfig) { c.extraOpts = append(c.extraOpts, opts...) }
}

// NewGollmClient creates a GollmClient for the given provider.
func NewGollmClient(provider string, opts ...GollmClientOption) (*GollmClient, error) {
	cfg := &gollmClientConfig{
		maxTokens: 4096,
		policy:    DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	model := cfg.model
	if model == "" {
		if info := DefaultAgentModel(provider); info != nil {
			model = info.ID
		}
	}
	if model == "" {
		return nil, fmt.Errorf("no model configured and no default known for provider %s", provider)
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetMaxRetries(0), // retry is owned by Invoke
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(cfg.apiKey))
	}
	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gollm LLM for provider %s: %w", provider, err)
	}

	return &GollmClient{
		provider: provider,
		model:    model,
		llm:      llm,
		policy:   cfg.policy,
	}, nil
}

// NewGollmClientFromLLM wraps an existing gollm.LLM instance.
func NewGollmClientFromLLM(provider string, llm gollm.LLM) *GollmClient {
	return &GollmClient{
		provider: provider,
		llm:      llm,
		policy:   DefaultRetryPolicy(),
	}
}

// Provider returns the provider identifier.
func (c *GollmClient) Provider() string { return c.provider }

// Model returns the configured model identifier.
func (c *GollmClient) Model() string { return c.model }

// Complete implements ApiClient.
func (c *GollmClient) Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error) {
	text, _, err := c.generate(ctx, messages, opts, nil)
	return text, err
}

// CompleteWithTools implements ApiClient.
func (c *GollmClient) CompleteWithTools(ctx context.Context, messages []Message, opts CompletionOptions, priorResults []ToolResult) (string, []ToolCallRequest, error) {
	return c.generate(ctx, messages, opts, priorResults)
}

func (c *GollmClient) generate(ctx context.Context, messages []Message, opts CompletionOptions, priorResults []ToolResult) (string, []ToolCallRequest, error) {
	prompt := c.buildPrompt(messages, opts, priorResults)
	c.applyOptions(opts)

	text, err := Invoke(ctx, c.policy, func(ctx context.Context) (string, error) {
		out, genErr := c.llm.Generate(ctx, prompt)
		if genErr != nil {
			return "", c.classifyError(genErr)
		}
		return out, nil
	})
	if err != nil {
		return "", nil, err
	}

	calls := parseEmbeddedToolCalls(text)
	text = stripToolCallJSON(text, calls)
	return text, calls, nil
}

// buildPrompt flattens the conversation into a gollm prompt. System messages
// accumulate into the system prompt; assistant turns and tool results are
// rendered as tagged context lines, the layout gollm's single-prompt API
// expects for multi-turn use.
func (c *GollmClient) buildPrompt(messages []Message, opts CompletionOptions, priorResults []ToolResult) *gollm.Prompt {
	var systemPrompt string
	var parts []string

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			systemPrompt += msg.Content + "\n"
		case RoleUser:
			parts = append(parts, msg.Content)
		case RoleAssistant:
			if msg.Content != "" {
				parts = append(parts, "[Assistant]: "+msg.Content)
			}
		}
	}

	for _, r := range priorResults {
		parts = append(parts, fmt.Sprintf("[Tool Result %s]: %s", r.ToolCallID, r.Output))
	}

	promptText := strings.Join(parts, "\n")
	if promptText == "" {
		promptText = "Hello"
	}

	var promptOpts []gollm.PromptOption
	if systemPrompt != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(strings.TrimSpace(systemPrompt), gollm.CacheTypeEphemeral))
	}
	if opts.MaxTokens != nil {
		promptOpts = append(promptOpts, gollm.WithMaxLength(*opts.MaxTokens))
	}

	// Tools and JSONSchema are mutually exclusive on some providers; prefer
	// the schema constraint and drop the tool list.
	if opts.JSONSchema != "" {
		promptText += "\n\nRespond with a single JSON object conforming to this JSON Schema, and nothing else:\n" + opts.JSONSchema
	} else if len(opts.Tools) > 0 {
		tools := make([]gollm.Tool, 0, len(opts.Tools))
		for _, t := range opts.Tools {
			tools = append(tools, gollm.Tool{
				Type: "function",
				Function: gollm.Function{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		promptOpts = append(promptOpts, gollm.WithTools(tools))
		mode := "auto"
		if opts.RequireToolUse {
			mode = "required"
		}
		promptOpts = append(promptOpts, gollm.WithToolChoice(mode))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

// applyOptions pushes request-level sampling parameters into the gollm LLM.
func (c *GollmClient) applyOptions(opts CompletionOptions) {
	if opts.Temperature != nil {
		c.llm.SetOption("temperature", *opts.Temperature)
	}
	if opts.TopP != nil {
		c.llm.SetOption("top_p", *opts.TopP)
	}
	if opts.MaxTokens != nil {
		c.llm.SetOption("max_tokens", *opts.MaxTokens)
	}
}

// rawToolCall is the shape tool calls take when gollm surfaces them embedded
// in response text.
type rawToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// parseEmbeddedToolCalls extracts tool calls that gollm returns as JSON in
// the response text. Provider-supplied ids are preserved; absent ids stay
// empty so the executor can synthesize deterministic ones.
func parseEmbeddedToolCalls(text string) []ToolCallRequest {
	start := strings.Index(text, `{"tool_calls"`)
	wrapped := start != -1
	if !wrapped {
		start = strings.Index(text, `[{"name"`)
	}
	if start == -1 {
		return nil
	}

	var raw []rawToolCall
	remaining := text[start:]
	if wrapped {
		var envelope struct {
			ToolCalls []rawToolCall `json:"tool_calls"`
		}
		if err := json.Unmarshal([]byte(remaining), &envelope); err != nil {
			return nil
		}
		raw = envelope.ToolCalls
	} else {
		if err := json.Unmarshal([]byte(remaining), &raw); err != nil {
			return nil
		}
	}

	calls := make([]ToolCallRequest, 0, len(raw))
	for _, rc := range raw {
		args := map[string]interface{}{}
		if len(rc.Arguments) > 0 {
			if err := json.Unmarshal(rc.Arguments, &args); err != nil {
				// A string-encoded argument object is common; try one unwrap.
				var inner string
				if json.Unmarshal(rc.Arguments, &inner) == nil {
					_ = json.Unmarshal([]byte(inner), &args)
				}
			}
		}
		calls = append(calls, ToolCallRequest{
			ID:        rc.ID,
			Name:      rc.Name,
			Arguments: args,
		})
	}
	return calls
}

// stripToolCallJSON removes the parsed tool-call JSON block from the text so
// callers see only prose.
func stripToolCallJSON(text string, calls []ToolCallRequest) string {
	if len(calls) == 0 {
		return text
	}
	result := text
	for _, marker := range []string{`{"tool_calls"`, `[{"name"`} {
		if idx := strings.Index(result, marker); idx != -1 {
			result = strings.TrimSpace(result[:idx])
		}
	}
	return result
}

// classifyError converts a gollm error into the package error taxonomy,
// keyed off status codes and well-known message fragments.
func (c *GollmClient) classifyError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)

	pe := ProviderError{Provider: c.provider, Body: msg, Cause: err}
	switch {
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		pe.StatusCode = 429
		pe.Retryable = true
		return &RateLimitError{ProviderError: pe}
	case strings.Contains(lower, "529") || strings.Contains(lower, "overloaded"):
		pe.StatusCode = 529
		pe.Retryable = true
		return &OverloadedError{ProviderError: pe}
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		pe.StatusCode = 401
		return &AuthError{ProviderError: pe}
	case strings.Contains(lower, "403") || strings.Contains(lower, "forbidden"):
		pe.StatusCode = 403
		return &AuthError{ProviderError: pe}
	case strings.Contains(lower, "400") || strings.Contains(lower, "invalid request"):
		pe.StatusCode = 400
		return &InvalidRequestError{ProviderError: pe}
	case strings.Contains(lower, "500") || strings.Contains(lower, "502") ||
		strings.Contains(lower, "503") || strings.Contains(lower, "internal server"):
		pe.StatusCode = 500
		pe.Retryable = true
		return &pe
	case strings.Contains(lower, "connection") || strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "no such host") || strings.Contains(lower, "eof"):
		return &TransportError{Cause: err}
	default:
		return &pe
	}
}
