package agent

import (
	"sync"
	"time"
)

// EventKind identifies the type of progress event.
type EventKind string

const (
	EventTaskStart      EventKind = "task_start"
	EventTaskEnd        EventKind = "task_end"
	EventRoundStart     EventKind = "round_start"
	EventAssistantText  EventKind = "assistant_text"
	EventToolStart      EventKind = "tool_start"
	EventToolEnd        EventKind = "tool_end"
	EventCompletionScan EventKind = "completion_scan"
	EventPermission     EventKind = "permission"
	EventLoopDetected   EventKind = "loop_detected"
	EventWarning        EventKind = "warning"
	EventError          EventKind = "error"
)

// Event is a typed progress event emitted during task execution.
type Event struct {
	Kind      EventKind              `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	TaskID    string                 `json:"task_id"`
	Message   string                 `json:"message,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Notifier delivers progress events to the host application over a buffered
// channel. Sends never block the execution loop: when the buffer is full
// the event is dropped.
type Notifier struct {
	taskID string
	ch     chan Event
	closed bool
	mu     sync.Mutex
}

// NewNotifier creates a Notifier with the given buffer size (256 when
// non-positive).
func NewNotifier(taskID string, bufferSize int) *Notifier {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Notifier{
		taskID: taskID,
		ch:     make(chan Event, bufferSize),
	}
}

// Emit sends an event. Closed notifiers drop events silently.
func (n *Notifier) Emit(kind EventKind, message string, data map[string]interface{}) {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	event := Event{
		Kind:      kind,
		Timestamp: time.Now(),
		TaskID:    n.taskID,
		Message:   message,
		Data:      data,
	}
	select {
	case n.ch <- event:
	default:
		// Buffer full; drop rather than stall the loop.
	}
}

// Events returns the read-only event channel.
func (n *Notifier) Events() <-chan Event {
	return n.ch
}

// Close closes the event channel. Safe to call multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.closed {
		n.closed = true
		close(n.ch)
	}
}
