package agent

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"syscall"
	"time"
)

// Engine executes typed Commands against the local filesystem and shell.
// Destructive commands (Edit, Write, Bash) are gated on the permission
// handler; everything else runs unconditionally.
type Engine struct {
	workingDir string
	perms      PermissionHandler
	parser     CodeParser
	notifier   *Notifier
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithPermissionHandler sets the approval gate for destructive commands.
func WithPermissionHandler(h PermissionHandler) EngineOption {
	return func(e *Engine) { e.perms = h }
}

// WithCodeParser sets the collaborator backing the ParseCode tool.
func WithCodeParser(p CodeParser) EngineOption {
	return func(e *Engine) { e.parser = p }
}

// WithEngineNotifier sets the progress notifier.
func WithEngineNotifier(n *Notifier) EngineOption {
	return func(e *Engine) { e.notifier = n }
}

// NewEngine creates an Engine rooted at workingDir. Without an explicit
// permission handler every destructive command is approved.
func NewEngine(workingDir string, opts ...EngineOption) *Engine {
	e := &Engine{
		workingDir: workingDir,
		perms:      AllowAll,
		parser:     &treeCodeParser{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WorkingDir returns the directory relative paths resolve against.
func (e *Engine) WorkingDir() string { return e.workingDir }

func (e *Engine) resolvePath(path string) string {
	if path == "" {
		return e.workingDir
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.workingDir, path)
}

// Execute runs one command and returns its output as model-facing text.
// Tool failures come back as errors; the caller folds them into the
// conversation rather than aborting the task.
func (e *Engine) Execute(ctx context.Context, cmd Command) (string, error) {
	if requiresPermission(cmd) {
		pending := e.pendingPermission(cmd)
		e.notifier.Emit(EventPermission, pending.Description,
			map[string]interface{}{"tool": pending.ToolName})
		allowed, err := e.perms.Decide(ctx, pending)
		if err != nil {
			return "", fmt.Errorf("permission check failed: %w", err)
		}
		if !allowed {
			e.notifier.Emit(EventWarning, "denied: "+pending.Description, nil)
			// Denial is a readable result, not a failure: the model should
			// see it and adjust rather than the caller aborting.
			return fmt.Sprintf("Permission denied for %s: %s", cmd.Tool(), pending.Description), nil
		}
	}

	output, err := e.dispatch(ctx, cmd)
	if err != nil {
		return "", err
	}
	return truncateToolOutput(output, cmd.Tool()), nil
}

func (e *Engine) dispatch(ctx context.Context, cmd Command) (string, error) {
	switch c := cmd.(type) {
	case ReadCommand:
		return readFileLines(e.resolvePath(c.Path), c.Offset, c.Limit)
	case GlobCommand:
		files, err := globFiles(c.Pattern, e.resolvePath(c.Path))
		if err != nil {
			return "", err
		}
		return formatGlobResults(c.Pattern, files), nil
	case GrepCommand:
		matches, err := grepFiles(c.Pattern, c.Include, e.resolvePath(c.Path))
		if err != nil {
			return "", err
		}
		return formatGrepResults(c.Pattern, matches), nil
	case ListCommand:
		return listDirectory(e.resolvePath(c.Path), c.Ignore)
	case EditCommand:
		return e.runEdit(c)
	case WriteCommand:
		return e.runWrite(c)
	case BashCommand:
		return e.runBash(ctx, c)
	case ParseCodeCommand:
		resolved := c
		resolved.RootDir = e.resolvePath(c.RootDir)
		return e.parser.ParseCode(ctx, resolved)
	default:
		return "", &UnknownToolError{Tool: cmd.Tool()}
	}
}

func (e *Engine) runEdit(c EditCommand) (string, error) {
	path := e.resolvePath(c.Path)
	before, after, count, err := editFile(path, c.Old, c.New, c.ExpectedReplacements)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully edited %s (%d replacement(s)):\n\n%s",
		c.Path, count, unifiedDiff(c.Path, before, after)), nil
}

func (e *Engine) runWrite(c WriteCommand) (string, error) {
	path := e.resolvePath(c.Path)
	previous, existed, err := writeFile(path, c.Content)
	if err != nil {
		return "", err
	}
	verb := "created"
	if existed {
		verb = "overwrote"
	}
	return fmt.Sprintf("Successfully %s %s:\n\n%s",
		verb, c.Path, unifiedDiff(c.Path, previous, c.Content)), nil
}

// runBash executes a shell command in the working directory. Non-zero exits
// are reported in the output so the model can react; only failures to spawn
// or a timeout surface as errors.
func (e *Engine) runBash(ctx context.Context, c BashCommand) (string, error) {
	if c.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	shell, shellArg := "/bin/sh", "-c"
	if runtime.GOOS == "windows" {
		shell, shellArg = "cmd.exe", "/c"
	}

	cmd := exec.CommandContext(ctx, shell, shellArg, c.Command)
	cmd.Dir = e.workingDir
	// Own process group so a timeout kills the whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			if cmd.Process != nil {
				_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
			return "", fmt.Errorf("command timed out after %dms: %s", c.TimeoutMs, c.Command)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return fmt.Sprintf("Command failed with exit code: %d\nStdout: %s\nStderr: %s",
				exitErr.ExitCode(), stdout.String(), stderr.String()), nil
		}
		return "", fmt.Errorf("failed to execute command: %w", err)
	}

	out := stdout.String()
	if stderr.Len() > 0 {
		if out != "" {
			out += "\n"
		}
		out += stderr.String()
	}
	if out == "" {
		out = "(no output)"
	}
	return out, nil
}
