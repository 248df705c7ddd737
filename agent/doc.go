// Package agent implements the autonomous coding-assistant engine: the
// execution loop that drives a model through a task and the tool subsystem
// it delegates side effects to.
//
// The package is organized around these core concepts:
//
//   - Executor: The per-task orchestrator. It seeds the conversation, asks
//     the model for the next step, executes requested tools in order, and
//     decides termination via an escalating completion-check schedule with
//     a hard round cap.
//   - Command: The typed, closed set of tool invocations. ParseCommand is
//     the single boundary where untrusted model JSON becomes typed.
//   - Engine: Executes Commands against the filesystem and shell, gating
//     destructive operations on a PermissionHandler with diff previews.
//   - Conversation: The ordered message log, with a single leading system
//     message and one tool result per issued tool call.
//   - Notifier: Best-effort, bounded progress event stream for the host.
//
// # Quick Start
//
//	client, _ := llmapi.NewGollmClient("anthropic")
//	engine := agent.NewEngine("/path/to/project")
//	exec := agent.NewExecutor(client, engine)
//
//	answer, err := exec.Execute(ctx, "Fix the failing test in pkg/store")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(answer)
package agent
