package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/davenfield/loom/llmapi"
)

// scriptedClient plays back canned turns. When the script is exhausted the
// last turn repeats, which models a client that "always returns X".
type scriptedClient struct {
	turns []scriptedTurn
	calls int
	// seen records the messages of every CompleteWithTools call.
	seen [][]llmapi.Message
}

type scriptedTurn struct {
	text      string
	toolCalls []llmapi.ToolCallRequest
	err       error
}

func (s *scriptedClient) turn() scriptedTurn {
	i := s.calls
	if i >= len(s.turns) {
		i = len(s.turns) - 1
	}
	s.calls++
	return s.turns[i]
}

func (s *scriptedClient) Complete(_ context.Context, messages []llmapi.Message, _ llmapi.CompletionOptions) (string, error) {
	t := s.turn()
	return t.text, t.err
}

func (s *scriptedClient) CompleteWithTools(_ context.Context, messages []llmapi.Message, _ llmapi.CompletionOptions, _ []llmapi.ToolResult) (string, []llmapi.ToolCallRequest, error) {
	s.seen = append(s.seen, messages)
	t := s.turn()
	return t.text, t.toolCalls, t.err
}

func readCall(id string) llmapi.ToolCallRequest {
	return llmapi.ToolCallRequest{
		ID:   id,
		Name: "Read",
		Arguments: map[string]interface{}{
			"file_path": "note.txt",
		},
	}
}

func newTestExecutor(t *testing.T, client llmapi.ApiClient, opts ...ExecutorOption) *Executor {
	t.Helper()
	dir := t.TempDir()
	if _, _, err := writeFile(dir+"/note.txt", "hello\n"); err != nil {
		t.Fatal(err)
	}
	return NewExecutor(client, NewEngine(dir), opts...)
}

func TestExecuteToolCallThenText(t *testing.T) {
	client := &scriptedClient{turns: []scriptedTurn{
		{text: "reading first", toolCalls: []llmapi.ToolCallRequest{readCall("call_1")}},
		{text: "The file says hello."},
	}}
	exec := newTestExecutor(t, client)

	answer, err := exec.Execute(context.Background(), "what does note.txt say?")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "The file says hello." {
		t.Errorf("expected round-2 text as the answer, got %q", answer)
	}
	if client.calls != 2 {
		t.Errorf("expected exactly 2 model calls, got %d", client.calls)
	}

	// Round 2 must see the tool result appended after the assistant turn.
	last := client.seen[1]
	var found bool
	for _, m := range last {
		if strings.Contains(m.Content, "Tool result for call call_1:") {
			found = true
		}
	}
	if !found {
		t.Error("round 2 must observe the round-1 tool result")
	}
}

func TestExecuteHardCapAt100Rounds(t *testing.T) {
	client := &scriptedClient{turns: []scriptedTurn{
		{text: "", toolCalls: []llmapi.ToolCallRequest{readCall("")}},
	}}
	var drained []Event
	notifier := NewNotifier("t", 1024)
	exec := newTestExecutor(t, client, WithNotifier(notifier))

	answer, err := exec.Execute(context.Background(), "never finishes")
	if err != nil {
		t.Fatal(err)
	}
	notifier.Close()
	for ev := range notifier.Events() {
		drained = append(drained, ev)
	}

	// 100 tool rounds plus exactly one drain summary call.
	if client.calls != 101 {
		t.Errorf("expected 100 rounds + 1 drain call, got %d calls", client.calls)
	}
	var sawDiagnostic bool
	for _, ev := range drained {
		if strings.Contains(ev.Message, "Reached maximum number of tool call loops (100). Forcing completion.") {
			sawDiagnostic = true
		}
	}
	if !sawDiagnostic {
		t.Error("expected forced-completion diagnostic event")
	}
	_ = answer
}

func TestExecuteCompletionVerdictEndsTask(t *testing.T) {
	verdict := `{"taskComplete": true, "finalSummary": "All done.", "reasoning": "tests pass"}`
	turns := []scriptedTurn{
		{text: "", toolCalls: []llmapi.ToolCallRequest{readCall("")}},
		{text: "", toolCalls: []llmapi.ToolCallRequest{readCall("")}},
		{text: "", toolCalls: []llmapi.ToolCallRequest{readCall("")}},
		{text: "", toolCalls: []llmapi.ToolCallRequest{readCall("")}},
		{text: verdict}, // round 5 is a completion checkpoint
	}
	client := &scriptedClient{turns: turns}
	exec := newTestExecutor(t, client)

	answer, err := exec.Execute(context.Background(), "task")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "All done." {
		t.Errorf("expected folded finalSummary, got %q", answer)
	}
	if client.calls != 5 {
		t.Errorf("expected the verdict to end the loop at round 5, got %d calls", client.calls)
	}
}

func TestExecuteBatchProducesOneResultPerCall(t *testing.T) {
	batch := []llmapi.ToolCallRequest{readCall(""), readCall("provider_7"), readCall("")}
	client := &scriptedClient{turns: []scriptedTurn{
		{text: "", toolCalls: batch},
		{text: "done"},
	}}
	exec := newTestExecutor(t, client)

	if _, err := exec.Execute(context.Background(), "task"); err != nil {
		t.Fatal(err)
	}

	// Synthesized ids fill the gaps; provider ids survive; order holds.
	wantIDs := []string{"tool_0", "provider_7", "tool_2"}
	var gotIDs []string
	for _, m := range client.seen[1] {
		for _, id := range wantIDs {
			if strings.HasPrefix(m.Content, fmt.Sprintf("Tool result for call %s:", id)) {
				gotIDs = append(gotIDs, id)
			}
		}
	}
	if len(gotIDs) != 3 {
		t.Fatalf("expected 3 tool results, got %d (%v)", len(gotIDs), gotIDs)
	}
	for i, id := range wantIDs {
		if gotIDs[i] != id {
			t.Errorf("result %d: expected id %s, got %s", i, id, gotIDs[i])
		}
	}
}

func TestExecuteParseErrorFoldsIntoConversation(t *testing.T) {
	bad := llmapi.ToolCallRequest{Name: "Read", Arguments: map[string]interface{}{}}
	client := &scriptedClient{turns: []scriptedTurn{
		{text: "", toolCalls: []llmapi.ToolCallRequest{bad}},
		{text: "recovered"},
	}}
	exec := newTestExecutor(t, client)

	answer, err := exec.Execute(context.Background(), "task")
	if err != nil {
		t.Fatalf("parse failures must not abort the task: %v", err)
	}
	if answer != "recovered" {
		t.Errorf("expected recovery answer, got %q", answer)
	}

	var sawParseError bool
	for _, m := range client.seen[1] {
		if strings.Contains(m.Content, "ERROR PARSING TOOL CALL:") {
			sawParseError = true
		}
	}
	if !sawParseError {
		t.Error("parse error must be visible to the model as a tool result")
	}
}

func TestExecuteExecErrorFoldsIntoConversation(t *testing.T) {
	missing := llmapi.ToolCallRequest{Name: "Read", Arguments: map[string]interface{}{
		"file_path": "no/such/file.txt",
	}}
	client := &scriptedClient{turns: []scriptedTurn{
		{text: "", toolCalls: []llmapi.ToolCallRequest{missing}},
		{text: "recovered"},
	}}
	exec := newTestExecutor(t, client)

	if _, err := exec.Execute(context.Background(), "task"); err != nil {
		t.Fatalf("exec failures must not abort the task: %v", err)
	}
	var sawExecError bool
	for _, m := range client.seen[1] {
		if strings.Contains(m.Content, "ERROR EXECUTING TOOL:") {
			sawExecError = true
		}
	}
	if !sawExecError {
		t.Error("exec error must be visible to the model as a tool result")
	}
}

func TestExecuteModelErrorAbortsTask(t *testing.T) {
	client := &scriptedClient{turns: []scriptedTurn{
		{err: &llmapi.NetworkError{Attempts: 4}},
	}}
	exec := newTestExecutor(t, client)

	if _, err := exec.Execute(context.Background(), "task"); err == nil {
		t.Fatal("model failure after retries must abort the task")
	}
}

func TestCompletionCheckSchedule(t *testing.T) {
	cases := []struct {
		round int
		check bool
	}{
		{1, false},
		{2, false},
		{5, true},  // checkpoint
		{7, false}, // interval 5, 7%5 != 0
		{10, true}, // checkpoint and interval
		{13, false},
		{15, true},
		{27, false}, // interval 2, odd
		{28, true},  // interval 2, even
		{41, true},  // interval 1: every round
		{42, true},
		{95, true}, // within 5 of the cap: forced
		{99, true},
	}
	for _, tc := range cases {
		if got := shouldRequestCompletion(tc.round, 100); got != tc.check {
			t.Errorf("round %d: expected check=%v, got %v", tc.round, tc.check, got)
		}
	}
}

func TestCompletionCheckNeverBeforeRound3(t *testing.T) {
	for round := 1; round <= 2; round++ {
		if shouldRequestCompletion(round, 100) {
			t.Errorf("round %d must never request completion", round)
		}
	}
}

func TestCompletionCheckIntervalMonotonic(t *testing.T) {
	prev := completionCheckInterval(3)
	for round := 4; round <= 60; round++ {
		cur := completionCheckInterval(round)
		if cur > prev {
			t.Errorf("interval must never grow with round count: round %d interval %d > %d", round, cur, prev)
		}
		prev = cur
	}
}

func TestFoldResponse(t *testing.T) {
	text, verdict := foldResponse(`{"taskComplete": false, "finalSummary": "halfway there"}`)
	if verdict == nil || verdict.TaskComplete || text != "halfway there" {
		t.Errorf("expected folded verdict, got %q %+v", text, verdict)
	}

	fenced := "```json\n{\"taskComplete\": true, \"finalSummary\": \"done\"}\n```"
	if text, verdict := foldResponse(fenced); verdict == nil || text != "done" {
		t.Errorf("fenced verdict must fold, got %q %+v", text, verdict)
	}

	if text, verdict := foldResponse("plain answer"); verdict != nil || text != "plain answer" {
		t.Errorf("plain text must pass through, got %q %+v", text, verdict)
	}

	// JSON without finalSummary is not a verdict.
	if _, verdict := foldResponse(`{"foo": 1}`); verdict != nil {
		t.Error("unrelated JSON must not fold into a verdict")
	}
}

func TestExecutorTaskID(t *testing.T) {
	client := &scriptedClient{turns: []scriptedTurn{{text: "done"}}}
	notifier := NewNotifier("t", 64)
	exec := newTestExecutor(t, client, WithNotifier(notifier))

	if exec.TaskID() == "" {
		t.Fatal("executor must carry a task id")
	}
	other := NewExecutor(client, NewEngine(t.TempDir()))
	if other.TaskID() == exec.TaskID() {
		t.Error("task ids must be unique per executor")
	}

	if _, err := exec.Execute(context.Background(), "task"); err != nil {
		t.Fatal(err)
	}
	notifier.Close()

	var tagged bool
	for ev := range notifier.Events() {
		if ev.Kind == EventTaskStart && ev.Data["task_id"] == exec.TaskID() {
			tagged = true
		}
	}
	if !tagged {
		t.Error("task start event must carry the executor's task id")
	}
}

func TestAssignCorrelationIDs(t *testing.T) {
	calls := assignCorrelationIDs([]llmapi.ToolCallRequest{
		{Name: "Read"}, {ID: "keep", Name: "Glob"}, {Name: "LS"},
	})
	if calls[0].ID != "tool_0" || calls[1].ID != "keep" || calls[2].ID != "tool_2" {
		t.Errorf("unexpected ids: %v %v %v", calls[0].ID, calls[1].ID, calls[2].ID)
	}
}

func TestDetectLoop(t *testing.T) {
	same := readCall("")
	history := []llmapi.ToolCallRequest{same, same, same, same, same, same}
	if !detectLoop(history, 6) {
		t.Error("six identical calls must register as a loop")
	}

	varied := []llmapi.ToolCallRequest{
		same,
		{Name: "Glob", Arguments: map[string]interface{}{"pattern": "*.go"}},
		{Name: "Grep", Arguments: map[string]interface{}{"pattern": "a"}},
		{Name: "Grep", Arguments: map[string]interface{}{"pattern": "b"}},
		{Name: "LS", Arguments: map[string]interface{}{"path": "."}},
		{Name: "Bash", Arguments: map[string]interface{}{"command": "true"}},
	}
	if detectLoop(varied, 6) {
		t.Error("varied calls must not register as a loop")
	}

	if detectLoop(history[:3], 6) {
		t.Error("short history must not register as a loop")
	}
}
