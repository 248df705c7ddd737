package agent

import (
	"fmt"
	"strings"
)

// TruncationMode specifies how oversized tool output is cut.
type TruncationMode string

const (
	TruncateHeadTail TruncationMode = "head_tail"
	TruncateTail     TruncationMode = "tail"
)

// Character limits per tool, applied before output enters the conversation.
var toolCharLimits = map[string]int{
	"Read":      50000,
	"Bash":      30000,
	"Grep":      20000,
	"Glob":      20000,
	"LS":        20000,
	"Edit":      10000,
	"Write":     1000,
	"ParseCode": 30000,
}

var toolTruncationModes = map[string]TruncationMode{
	"Read":      TruncateHeadTail,
	"Bash":      TruncateHeadTail,
	"Grep":      TruncateTail,
	"Glob":      TruncateTail,
	"LS":        TruncateTail,
	"Edit":      TruncateTail,
	"Write":     TruncateTail,
	"ParseCode": TruncateHeadTail,
}

// Line limits per tool, applied after character truncation.
var toolLineLimits = map[string]int{
	"Bash": 256,
	"Grep": 200,
	"Glob": 500,
}

const fallbackCharLimit = 30000

// truncateOutput applies character-based truncation to output.
func truncateOutput(output string, maxChars int, mode TruncationMode) string {
	if len(output) <= maxChars {
		return output
	}

	removed := len(output) - maxChars
	switch mode {
	case TruncateTail:
		return fmt.Sprintf("[WARNING: Tool output was truncated. First %d characters were removed.]\n\n", removed) +
			output[len(output)-maxChars:]
	default:
		half := maxChars / 2
		return output[:half] +
			fmt.Sprintf("\n\n[WARNING: Tool output was truncated. %d characters were removed from the middle. "+
				"Re-run the tool with more targeted parameters if you need specific parts.]\n\n", removed) +
			output[len(output)-half:]
	}
}

// truncateLines applies line-based truncation using a head/tail split.
func truncateLines(output string, maxLines int) string {
	lines := strings.Split(output, "\n")
	if len(lines) <= maxLines {
		return output
	}

	headCount := maxLines / 2
	tailCount := maxLines - headCount
	omitted := len(lines) - headCount - tailCount

	return strings.Join(lines[:headCount], "\n") +
		fmt.Sprintf("\n[... %d lines omitted ...]\n", omitted) +
		strings.Join(lines[len(lines)-tailCount:], "\n")
}

// truncateToolOutput applies the per-tool truncation pipeline: characters
// first (bounds pathological outputs), then lines (readability).
func truncateToolOutput(output, toolName string) string {
	maxChars, ok := toolCharLimits[toolName]
	if !ok {
		maxChars = fallbackCharLimit
	}
	mode, ok := toolTruncationModes[toolName]
	if !ok {
		mode = TruncateHeadTail
	}

	result := truncateOutput(output, maxChars, mode)

	if maxLines, ok := toolLineLimits[toolName]; ok {
		result = truncateLines(result, maxLines)
	}
	return result
}
