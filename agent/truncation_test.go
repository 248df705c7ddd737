package agent

import (
	"strings"
	"testing"
)

func TestTruncateOutputHeadTail(t *testing.T) {
	input := strings.Repeat("a", 600) + strings.Repeat("z", 600)
	out := truncateOutput(input, 200, TruncateHeadTail)
	if !strings.HasPrefix(out, strings.Repeat("a", 100)) {
		t.Error("head must be preserved")
	}
	if !strings.HasSuffix(out, strings.Repeat("z", 100)) {
		t.Error("tail must be preserved")
	}
	if !strings.Contains(out, "truncated") {
		t.Error("truncation must be announced")
	}
}

func TestTruncateOutputTail(t *testing.T) {
	input := strings.Repeat("a", 500) + "END"
	out := truncateOutput(input, 100, TruncateTail)
	if !strings.HasSuffix(out, "END") {
		t.Error("tail mode must keep the end of the output")
	}
}

func TestTruncateOutputUnderLimitUnchanged(t *testing.T) {
	if out := truncateOutput("short", 100, TruncateHeadTail); out != "short" {
		t.Errorf("under-limit output must pass through, got %q", out)
	}
}

func TestTruncateLines(t *testing.T) {
	var lines []string
	for i := 0; i < 50; i++ {
		lines = append(lines, "line")
	}
	out := truncateLines(strings.Join(lines, "\n"), 10)
	if !strings.Contains(out, "lines omitted") {
		t.Errorf("expected omission marker, got %q", out)
	}
	if got := len(strings.Split(out, "\n")); got > 12 {
		t.Errorf("expected roughly 10 lines plus marker, got %d", got)
	}
}

func TestTruncateToolOutputPerToolLimit(t *testing.T) {
	// Write has a tight 1000-char limit.
	input := strings.Repeat("x", 5000)
	out := truncateToolOutput(input, "Write")
	if len(out) >= len(input) {
		t.Error("Write output must be truncated at its per-tool limit")
	}
	// Unknown tools fall back to the default limit.
	if out := truncateToolOutput("ok", "Mystery"); out != "ok" {
		t.Errorf("small output for unknown tool must pass through, got %q", out)
	}
}

func TestNotifierDropsWhenFull(t *testing.T) {
	n := NewNotifier("t", 1)
	n.Emit(EventWarning, "first", nil)
	n.Emit(EventWarning, "second", nil) // buffer full; must not block
	n.Close()

	var got []Event
	for ev := range n.Events() {
		got = append(got, ev)
	}
	if len(got) != 1 || got[0].Message != "first" {
		t.Errorf("expected only the first event, got %+v", got)
	}
}

func TestNotifierCloseIsIdempotent(t *testing.T) {
	n := NewNotifier("t", 4)
	n.Close()
	n.Close()
	n.Emit(EventWarning, "after close", nil) // must not panic
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *Notifier
	n.Emit(EventWarning, "nowhere", nil)
}
