package agent

import "github.com/davenfield/loom/llmapi"

// ToolDefinitions returns the static tool catalog advertised to the model.
// The JSON schemas here are the contract the dispatcher in ParseCommand
// enforces; the two must agree on names and argument keys.
func ToolDefinitions() []llmapi.ToolDefinition {
	return []llmapi.ToolDefinition{
		{
			Name:        "Read",
			Description: "Read a file from the filesystem with optional line offset and limit. Output is numbered lines.",
			Parameters: objectSchema(map[string]interface{}{
				"file_path": prop("string", "Absolute or working-directory-relative path to the file"),
				"offset":    prop("integer", "1-based line number to start reading from"),
				"limit":     prop("integer", "Maximum number of lines to read"),
			}, "file_path"),
		},
		{
			Name:        "Glob",
			Description: "Find files matching a glob pattern such as '**/*.go'. Returns matching paths.",
			Parameters: objectSchema(map[string]interface{}{
				"pattern": prop("string", "Glob pattern to match against file paths"),
				"path":    prop("string", "Directory to search in; defaults to the working directory"),
			}, "pattern"),
		},
		{
			Name:        "Grep",
			Description: "Search file contents with a regular expression. Returns path:line:text matches.",
			Parameters: objectSchema(map[string]interface{}{
				"pattern": prop("string", "Regular expression to search for"),
				"include": prop("string", "Glob filter on file names, e.g. '*.go'"),
				"path":    prop("string", "Directory to search in; defaults to the working directory"),
			}, "pattern"),
		},
		{
			Name:        "LS",
			Description: "List the entries of a directory, marking each as a file or directory.",
			Parameters: objectSchema(map[string]interface{}{
				"path": prop("string", "Directory to list"),
				"ignore": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Glob patterns for entries to omit",
				},
			}, "path"),
		},
		{
			Name:        "Edit",
			Description: "Replace an exact string in a file. Fails unless the occurrence count matches expectations, leaving the file untouched.",
			Parameters: objectSchema(map[string]interface{}{
				"file_path":             prop("string", "Path of the file to modify"),
				"old_string":            prop("string", "Exact text to replace"),
				"new_string":            prop("string", "Replacement text"),
				"expected_replacements": prop("integer", "Exact number of occurrences to replace; defaults to 1"),
			}, "file_path", "old_string", "new_string"),
		},
		{
			Name:        "Write",
			Description: "Create a file or overwrite its full content.",
			Parameters: objectSchema(map[string]interface{}{
				"file_path": prop("string", "Path of the file to write"),
				"content":   prop("string", "Complete new file content"),
			}, "file_path", "content"),
		},
		{
			Name:        "Bash",
			Description: "Execute a shell command and return its combined output. Non-zero exits are reported in the output, not as errors.",
			Parameters: objectSchema(map[string]interface{}{
				"command": prop("string", "Shell command to execute"),
				"timeout": prop("integer", "Timeout in milliseconds"),
			}, "command"),
		},
		{
			Name:        "ParseCode",
			Description: "Produce a structural summary of a codebase relevant to a query.",
			Parameters: objectSchema(map[string]interface{}{
				"root_dir":      prop("string", "Root directory of the codebase"),
				"query":         prop("string", "What to look for in the codebase"),
				"max_file_size": prop("integer", "Skip files larger than this many bytes"),
				"max_files":     prop("integer", "Maximum number of files to analyze"),
				"max_depth":     prop("integer", "Maximum directory depth to descend"),
			}, "root_dir", "query"),
		},
	}
}

func objectSchema(props map[string]interface{}, required ...string) map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func prop(typ, desc string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": desc}
}
