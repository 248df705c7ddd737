package agent

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

const basePrompt = `You are an autonomous coding assistant. You complete software tasks by
reading and searching code, editing files, and running shell commands with
the tools provided.

Guidelines:
- Inspect before you modify: read the relevant files first.
- Prefer Edit for targeted changes; reserve Write for new files or full rewrites.
- Keep changes minimal and consistent with the surrounding code.
- After making changes, verify them when a cheap check exists (build, test, grep).
- When the task is done, reply with a concise summary and no further tool calls.`

// BuildSystemPrompt assembles the system prompt for a task: base
// instructions plus a structured environment block for the working
// directory.
func BuildSystemPrompt(workingDir string) string {
	var sb strings.Builder
	sb.WriteString(basePrompt)
	sb.WriteString("\n\n<environment>\n")
	fmt.Fprintf(&sb, "Working directory: %s\n", workingDir)
	isRepo := isGitRepository(workingDir)
	fmt.Fprintf(&sb, "Is git repository: %v\n", isRepo)
	if isRepo {
		if branch := gitBranch(workingDir); branch != "" {
			fmt.Fprintf(&sb, "Git branch: %s\n", branch)
		}
	}
	fmt.Fprintf(&sb, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&sb, "Today's date: %s\n", time.Now().Format("2006-01-02"))
	sb.WriteString("</environment>")
	return WithWorkingDirectory(sb.String(), workingDir)
}

func isGitRepository(dir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	out, err := cmd.Output()
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

func gitBranch(dir string) string {
	cmd := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
