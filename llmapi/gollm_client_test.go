package llmapi

import (
	"errors"
	"testing"
)

func TestParseEmbeddedToolCallsArrayForm(t *testing.T) {
	text := `I'll read that file. [{"name": "Read", "arguments": {"file_path": "/tmp/a.go", "limit": 40}}]`
	calls := parseEmbeddedToolCalls(text)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Name != "Read" {
		t.Errorf("expected tool Read, got %q", calls[0].Name)
	}
	if calls[0].ID != "" {
		t.Errorf("missing provider id must stay empty, got %q", calls[0].ID)
	}
	if calls[0].Arguments["file_path"] != "/tmp/a.go" {
		t.Errorf("unexpected arguments: %v", calls[0].Arguments)
	}

	cleaned := stripToolCallJSON(text, calls)
	if cleaned != "I'll read that file." {
		t.Errorf("expected prose only, got %q", cleaned)
	}
}

func TestParseEmbeddedToolCallsEnvelopeForm(t *testing.T) {
	text := `{"tool_calls": [{"id": "call_9", "name": "Bash", "arguments": {"command": "ls"}}]}`
	calls := parseEmbeddedToolCalls(text)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].ID != "call_9" {
		t.Errorf("provider id must be preserved, got %q", calls[0].ID)
	}
	if calls[0].Arguments["command"] != "ls" {
		t.Errorf("unexpected arguments: %v", calls[0].Arguments)
	}
}

func TestParseEmbeddedToolCallsPlainText(t *testing.T) {
	if calls := parseEmbeddedToolCalls("The refactor is finished."); calls != nil {
		t.Errorf("expected no calls in plain text, got %v", calls)
	}
}

func TestParseEmbeddedToolCallsStringEncodedArguments(t *testing.T) {
	text := `[{"name": "Write", "arguments": "{\"file_path\": \"x.txt\", \"content\": \"hi\"}"}]`
	calls := parseEmbeddedToolCalls(text)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Arguments["content"] != "hi" {
		t.Errorf("string-encoded arguments not unwrapped: %v", calls[0].Arguments)
	}
}

func TestClassifyError(t *testing.T) {
	c := &GollmClient{provider: "anthropic"}

	cases := []struct {
		msg       string
		retryable bool
	}{
		{"API error: 429 Too Many Requests", true},
		{"anthropic: overloaded_error", true},
		{"request failed: 500 internal server error", true},
		{"dial tcp: connection refused", true},
		{"401 unauthorized", false},
		{"400 invalid request body", false},
	}
	for _, tc := range cases {
		err := c.classifyError(errors.New(tc.msg))
		if got := IsRetryable(err); got != tc.retryable {
			t.Errorf("%q: expected retryable=%v, got %v (%T)", tc.msg, tc.retryable, got, err)
		}
	}
}

func TestClassifyErrorTransport(t *testing.T) {
	c := &GollmClient{provider: "openai"}
	err := c.classifyError(errors.New("Post \"https://api.openai.com\": dial tcp: i/o timeout"))
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %T", err)
	}
}
