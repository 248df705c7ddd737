package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davenfield/loom/llmapi"
)

const (
	// defaultMaxRounds is the hard cap on model-call/tool-execution rounds
	// for one task.
	defaultMaxRounds = 100

	// forcedCheckMargin forces a completion check whenever the round is
	// within this many rounds of the cap.
	forcedCheckMargin = 5

	// loopWindow is how many trailing tool calls the repetition detector
	// examines.
	loopWindow = 6

	samplingTemperature = 0.25
	samplingTopP        = 0.95
	samplingMaxTokens   = 4096
)

// completionSchema constrains a completion-check response to a structured
// verdict.
const completionSchema = `{
  "type": "object",
  "properties": {
    "taskComplete": {"type": "boolean", "description": "Whether the task is fully complete"},
    "finalSummary": {"type": "string", "description": "Summary of what was accomplished"},
    "reasoning": {"type": "string", "description": "Why the task is or is not complete"}
  },
  "required": ["taskComplete", "finalSummary"]
}`

// completionVerdict is the structured reply to a completion check.
type completionVerdict struct {
	TaskComplete bool   `json:"taskComplete"`
	FinalSummary string `json:"finalSummary"`
	Reasoning    string `json:"reasoning,omitempty"`
}

// completionCheckpoints are rounds that always trigger a completion check.
var completionCheckpoints = map[int]bool{
	5: true, 10: true, 15: true, 20: true, 30: true, 50: true, 75: true,
}

// completionCheckInterval returns how often (in rounds) to ask for a
// completion verdict at the given round. Zero means never. The interval
// shrinks as the task runs long, pressuring it toward closure without
// checking every round.
func completionCheckInterval(round int) int {
	switch {
	case round <= 2:
		return 0
	case round <= 6:
		return 10
	case round <= 15:
		return 5
	case round <= 25:
		return 3
	case round <= 40:
		return 2
	default:
		return 1
	}
}

// shouldRequestCompletion decides whether the model call at round should be
// constrained to a completion verdict. Pure so the schedule is testable.
func shouldRequestCompletion(round, maxRounds int) bool {
	if round >= maxRounds-forcedCheckMargin {
		return true
	}
	if completionCheckpoints[round] {
		return true
	}
	interval := completionCheckInterval(round)
	return interval > 0 && round%interval == 0
}

// foldResponse extracts a completion verdict from a model reply. Replies
// that are not a JSON verdict object come back as plain text with a nil
// verdict.
func foldResponse(text string) (string, *completionVerdict) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if !strings.HasPrefix(trimmed, "{") {
		return text, nil
	}
	var verdict completionVerdict
	if err := json.Unmarshal([]byte(trimmed), &verdict); err != nil || verdict.FinalSummary == "" {
		return text, nil
	}
	return verdict.FinalSummary, &verdict
}

// Executor drives one task to completion: it seeds the conversation, asks
// the model for the next step, executes requested tools in order, and
// decides termination. Each Executor owns its conversation exclusively;
// only the ApiClient handle is shared across tasks.
type Executor struct {
	client    llmapi.ApiClient
	engine    *Engine
	notifier  *Notifier
	maxRounds int
	timeout   time.Duration

	taskID string
	conv   *Conversation
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithMaxRounds overrides the round cap. Values below 1 are ignored.
func WithMaxRounds(n int) ExecutorOption {
	return func(e *Executor) {
		if n >= 1 {
			e.maxRounds = n
		}
	}
}

// WithNotifier sets the progress notifier.
func WithNotifier(n *Notifier) ExecutorOption {
	return func(e *Executor) { e.notifier = n }
}

// WithTimeout bounds one Execute call by wall clock.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = d }
}

// NewExecutor creates an Executor over the given model client and tool
// engine.
func NewExecutor(client llmapi.ApiClient, engine *Engine, opts ...ExecutorOption) *Executor {
	e := &Executor{
		client:    client,
		engine:    engine,
		maxRounds: defaultMaxRounds,
		taskID:    uuid.NewString(),
		conv:      NewConversation(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Conversation exposes the message log, for callers that keep the executor
// alive across follow-up turns.
func (e *Executor) Conversation() *Conversation { return e.conv }

// TaskID returns the unique identifier for this executor's task, for
// correlating progress events and logs across concurrent tasks.
func (e *Executor) TaskID() string { return e.taskID }

func (e *Executor) baseOptions() llmapi.CompletionOptions {
	return llmapi.CompletionOptions{
		Temperature: llmapi.Float64(samplingTemperature),
		TopP:        llmapi.Float64(samplingTopP),
		MaxTokens:   llmapi.Int(samplingMaxTokens),
		Tools:       ToolDefinitions(),
	}
}

// Execute runs one task and returns the final answer. Model-call failures
// abort the task; tool parse and execution failures are folded into the
// conversation as error text so the model can self-correct.
func (e *Executor) Execute(ctx context.Context, task string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	if _, ok := e.conv.System(); !ok {
		e.conv.SetSystem(BuildSystemPrompt(e.engine.WorkingDir()))
	}
	e.conv.AddUser(task)
	e.notifier.Emit(EventTaskStart, task, map[string]interface{}{"task_id": e.taskID})

	var (
		currentAnswer string
		completed     bool
		callHistory   []llmapi.ToolCallRequest
		loopWarned    bool
	)

	round := 0
	for round < e.maxRounds {
		round++
		e.notifier.Emit(EventRoundStart,
			fmt.Sprintf("Tool iteration %d/%d", round, e.maxRounds),
			map[string]interface{}{"round": round})

		opts := e.baseOptions()
		checking := shouldRequestCompletion(round, e.maxRounds)
		if checking {
			opts.JSONSchema = completionSchema
			e.notifier.Emit(EventCompletionScan,
				fmt.Sprintf("Requesting completion verdict at round %d", round), nil)
		}

		text, calls, err := e.client.CompleteWithTools(ctx, e.conv.Messages(), opts, nil)
		if err != nil {
			e.notifier.Emit(EventError, err.Error(), nil)
			return "", fmt.Errorf("model call failed at round %d: %w", round, err)
		}

		answer, verdict := foldResponse(text)
		if verdict != nil {
			currentAnswer = answer
			e.conv.AddAssistant(answer)
			if verdict.TaskComplete {
				completed = true
				break
			}
			continue
		}

		if len(calls) == 0 {
			// No tools requested and no verdict: the text is the answer.
			currentAnswer = text
			completed = true
			e.conv.AddAssistant(text)
			break
		}

		if text != "" {
			currentAnswer = text
			e.notifier.Emit(EventAssistantText, text, nil)
		}

		calls = assignCorrelationIDs(calls)
		e.conv.AddAssistantWithToolCalls(text, calls)
		e.executeToolCalls(ctx, calls)

		callHistory = append(callHistory, calls...)
		if !loopWarned && detectLoop(callHistory, loopWindow) {
			loopWarned = true
			e.notifier.Emit(EventLoopDetected, "Repeating tool-call pattern detected", nil)
			e.conv.AddUser("You appear to be repeating the same tool calls without progress. " +
				"Change your approach, or if the task is done, reply with a final summary and no tool calls.")
		}
	}

	if round >= e.maxRounds && !completed {
		diagnostic := fmt.Sprintf("Reached maximum number of tool call loops (%d). Forcing completion.", e.maxRounds)
		e.notifier.Emit(EventWarning, diagnostic, nil)
		e.conv.AddUser(diagnostic)
	}

	if !completed {
		// One schema-constrained drain call so the caller never gets a
		// bare tool-result echo as the answer.
		if summary, ok := e.finalSummary(ctx); ok {
			currentAnswer = summary
			e.conv.AddAssistant(summary)
		}
	}

	e.notifier.Emit(EventTaskEnd, currentAnswer,
		map[string]interface{}{"task_id": e.taskID, "rounds": round})
	return currentAnswer, nil
}

// assignCorrelationIDs fills in missing tool-call ids with deterministic
// per-batch synthetic ids. Ids are assigned once per logical call, before
// execution, so a call keeps one id for its whole lifetime.
func assignCorrelationIDs(calls []llmapi.ToolCallRequest) []llmapi.ToolCallRequest {
	out := make([]llmapi.ToolCallRequest, len(calls))
	copy(out, calls)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = fmt.Sprintf("tool_%d", i)
		}
	}
	return out
}

// executeToolCalls runs a batch sequentially in order, appending exactly
// one result per call. Order matters: later calls may touch files earlier
// calls edited.
func (e *Executor) executeToolCalls(ctx context.Context, calls []llmapi.ToolCallRequest) {
	for _, call := range calls {
		e.notifier.Emit(EventToolStart,
			fmt.Sprintf("⏺ [%s] Executing %s...", call.ID, call.Name),
			map[string]interface{}{"tool": call.Name})

		output := e.runToolCall(ctx, call)
		e.conv.AddToolResult(call.ID, output)

		e.notifier.Emit(EventToolEnd, "[TOOL_EXECUTED]",
			map[string]interface{}{"tool": call.Name})
	}
}

// runToolCall parses and executes one call. Failures come back as text the
// model can read and react to; they never abort the task.
func (e *Executor) runToolCall(ctx context.Context, call llmapi.ToolCallRequest) string {
	cmd, err := ParseCommand(call.Name, call.Arguments)
	if err != nil {
		return fmt.Sprintf("ERROR PARSING TOOL CALL: %v. Please check the format of your arguments and try again.", err)
	}
	output, err := e.engine.Execute(ctx, cmd)
	if err != nil {
		return fmt.Sprintf("ERROR EXECUTING TOOL: %v", err)
	}
	return output
}

// finalSummary asks the model once, schema-constrained, for a closing
// summary of the work so far.
func (e *Executor) finalSummary(ctx context.Context) (string, bool) {
	messages := append(e.conv.Messages(), llmapi.UserMessage(
		"Provide a final summary of the work completed so far."))
	opts := e.baseOptions()
	opts.Tools = nil
	opts.JSONSchema = completionSchema

	text, err := e.client.Complete(ctx, messages, opts)
	if err != nil {
		e.notifier.Emit(EventWarning, fmt.Sprintf("final summary call failed: %v", err), nil)
		return "", false
	}
	answer, _ := foldResponse(text)
	if strings.TrimSpace(answer) == "" {
		return "", false
	}
	return answer, true
}
