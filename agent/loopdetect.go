package agent

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/davenfield/loom/llmapi"
)

// toolCallSignature computes a deterministic signature for a tool call
// (name + hash of arguments).
func toolCallSignature(call llmapi.ToolCallRequest) string {
	raw, err := json.Marshal(call.Arguments)
	if err != nil {
		raw = []byte(call.Name)
	}
	h := sha256.Sum256(raw)
	return fmt.Sprintf("%s:%x", call.Name, h[:8])
}

// detectLoop checks whether the last windowSize tool calls follow a
// repeating pattern of length 1, 2, or 3. history is chronological.
func detectLoop(history []llmapi.ToolCallRequest, windowSize int) bool {
	if len(history) < windowSize {
		return false
	}

	sigs := make([]string, 0, windowSize)
	for _, call := range history[len(history)-windowSize:] {
		sigs = append(sigs, toolCallSignature(call))
	}

	for patternLen := 1; patternLen <= 3; patternLen++ {
		if windowSize%patternLen != 0 {
			continue
		}
		pattern := sigs[:patternLen]
		allMatch := true
		for i := patternLen; i < windowSize && allMatch; i += patternLen {
			for j := 0; j < patternLen; j++ {
				if sigs[i+j] != pattern[j] {
					allMatch = false
					break
				}
			}
		}
		if allMatch {
			return true
		}
	}

	return false
}
