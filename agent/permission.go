package agent

import (
	"context"
	"encoding/json"
	"fmt"
)

// PendingPermission describes a destructive operation awaiting approval.
// DiffPreview carries a unified diff for file mutations and is empty for
// command execution.
type PendingPermission struct {
	ToolName    string `json:"tool_name"`
	Description string `json:"description"`
	DiffPreview string `json:"diff_preview,omitempty"`
	RawArgs     string `json:"raw_args,omitempty"`
}

// PermissionHandler decides whether a destructive operation may proceed.
type PermissionHandler interface {
	Decide(ctx context.Context, pending PendingPermission) (bool, error)
}

// PermissionFunc adapts a function to the PermissionHandler interface.
type PermissionFunc func(ctx context.Context, pending PendingPermission) (bool, error)

func (f PermissionFunc) Decide(ctx context.Context, pending PendingPermission) (bool, error) {
	return f(ctx, pending)
}

// AllowAll approves every operation. Intended for tests and fully
// unattended runs.
var AllowAll PermissionHandler = PermissionFunc(
	func(context.Context, PendingPermission) (bool, error) { return true, nil })

// requiresPermission reports whether cmd mutates state and therefore needs
// approval before execution.
func requiresPermission(cmd Command) bool {
	switch cmd.(type) {
	case EditCommand, WriteCommand, BashCommand:
		return true
	default:
		return false
	}
}

// pendingPermission builds the approval request for a destructive command,
// including a diff preview for file mutations. Previews are computed against
// the same resolved path execution will mutate, so the collaborator reviews
// the file that actually changes.
func (e *Engine) pendingPermission(cmd Command) PendingPermission {
	pending := PendingPermission{ToolName: cmd.Tool()}
	if raw, err := json.Marshal(cmd); err == nil {
		pending.RawArgs = string(raw)
	}

	switch c := cmd.(type) {
	case EditCommand:
		pending.Description = fmt.Sprintf("Modify file '%s'", c.Path)
		resolved := c
		resolved.Path = e.resolvePath(c.Path)
		pending.DiffPreview = previewEdit(resolved)
	case WriteCommand:
		pending.Description = fmt.Sprintf("Overwrite file '%s'", c.Path)
		resolved := c
		resolved.Path = e.resolvePath(c.Path)
		pending.DiffPreview = previewWrite(resolved)
	case BashCommand:
		pending.Description = fmt.Sprintf("Execute command: '%s'", c.Command)
	}
	return pending
}
