package agent

import (
	"fmt"
)

// Command is a validated, typed tool invocation. The set of variants is
// closed: the dispatcher in ParseCommand is the only constructor, so every
// downstream consumer works with statically known shapes.
type Command interface {
	// Tool returns the catalog name of the tool this command invokes.
	Tool() string
	command()
}

// ReadCommand reads a file, optionally sliced by 1-based line offset/limit.
type ReadCommand struct {
	Path   string `json:"file_path"`
	Offset int    `json:"offset,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// GlobCommand finds files matching a glob pattern under an optional root.
type GlobCommand struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`
}

// GrepCommand searches file contents with a regular expression.
type GrepCommand struct {
	Pattern string `json:"pattern"`
	Include string `json:"include,omitempty"`
	Path    string `json:"path,omitempty"`
}

// ListCommand lists a directory.
type ListCommand struct {
	Path   string   `json:"path"`
	Ignore []string `json:"ignore,omitempty"`
}

// EditCommand replaces Old with New in a file. When ExpectedReplacements is
// zero (absent), Old must occur exactly once; otherwise the occurrence count
// must match exactly or the edit fails without touching the file.
type EditCommand struct {
	Path                 string `json:"file_path"`
	Old                  string `json:"old_string"`
	New                  string `json:"new_string"`
	ExpectedReplacements int    `json:"expected_replacements,omitempty"`
}

// WriteCommand replaces (or creates) a file's full content.
type WriteCommand struct {
	Path    string `json:"file_path"`
	Content string `json:"content"`
}

// BashCommand runs a shell command. TimeoutMs zero means no per-command
// bound beyond the caller's context.
type BashCommand struct {
	Command   string `json:"command"`
	TimeoutMs int    `json:"timeout,omitempty"`
}

// ParseCodeCommand asks the code-parsing collaborator for a structural
// summary of a codebase. Zero limits mean collaborator defaults.
type ParseCodeCommand struct {
	RootDir     string `json:"root_dir"`
	Query       string `json:"query"`
	MaxFileSize int    `json:"max_file_size,omitempty"`
	MaxFiles    int    `json:"max_files,omitempty"`
	MaxDepth    int    `json:"max_depth,omitempty"`
}

func (ReadCommand) Tool() string      { return "Read" }
func (GlobCommand) Tool() string      { return "Glob" }
func (GrepCommand) Tool() string      { return "Grep" }
func (ListCommand) Tool() string      { return "LS" }
func (EditCommand) Tool() string      { return "Edit" }
func (WriteCommand) Tool() string     { return "Write" }
func (BashCommand) Tool() string      { return "Bash" }
func (ParseCodeCommand) Tool() string { return "ParseCode" }

func (ReadCommand) command()      {}
func (GlobCommand) command()      {}
func (GrepCommand) command()      {}
func (ListCommand) command()      {}
func (EditCommand) command()      {}
func (WriteCommand) command()     {}
func (BashCommand) command()      {}
func (ParseCodeCommand) command() {}

// ParseError reports a missing or mistyped tool argument.
type ParseError struct {
	Tool   string
	Field  string
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s parameters: %s: %s", e.Tool, e.Field, e.Detail)
}

// UnknownToolError reports a tool name outside the catalog.
type UnknownToolError struct {
	Tool string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Tool)
}

// ParseCommand converts a model-issued tool name and untyped argument map
// into a typed Command. This is the single point where untrusted
// model-generated JSON becomes typed; it fails closed on missing required
// fields and type mismatches, and never panics.
func ParseCommand(name string, args map[string]interface{}) (Command, error) {
	p := argParser{tool: name, args: args}
	switch name {
	case "Read":
		cmd := ReadCommand{
			Path:   p.requiredString("file_path"),
			Offset: p.optionalInt("offset"),
			Limit:  p.optionalInt("limit"),
		}
		return p.finish(cmd)
	case "Glob":
		cmd := GlobCommand{
			Pattern: p.requiredString("pattern"),
			Path:    p.optionalString("path"),
		}
		return p.finish(cmd)
	case "Grep":
		cmd := GrepCommand{
			Pattern: p.requiredString("pattern"),
			Include: p.optionalString("include"),
			Path:    p.optionalString("path"),
		}
		return p.finish(cmd)
	case "LS":
		cmd := ListCommand{
			Path:   p.requiredString("path"),
			Ignore: p.optionalStringSlice("ignore"),
		}
		return p.finish(cmd)
	case "Edit":
		cmd := EditCommand{
			Path:                 p.requiredString("file_path"),
			Old:                  p.requiredString("old_string"),
			New:                  p.requiredString("new_string"),
			ExpectedReplacements: p.optionalInt("expected_replacements"),
		}
		if cmd.ExpectedReplacements < 0 {
			return nil, &ParseError{Tool: name, Field: "expected_replacements", Detail: "must be positive"}
		}
		return p.finish(cmd)
	case "Write":
		cmd := WriteCommand{
			Path:    p.requiredString("file_path"),
			Content: p.requiredString("content"),
		}
		return p.finish(cmd)
	case "Bash":
		cmd := BashCommand{
			Command:   p.requiredString("command"),
			TimeoutMs: p.optionalInt("timeout"),
		}
		return p.finish(cmd)
	case "ParseCode":
		cmd := ParseCodeCommand{
			RootDir:     p.requiredString("root_dir"),
			Query:       p.requiredString("query"),
			MaxFileSize: p.optionalInt("max_file_size"),
			MaxFiles:    p.optionalInt("max_files"),
			MaxDepth:    p.optionalInt("max_depth"),
		}
		return p.finish(cmd)
	default:
		return nil, &UnknownToolError{Tool: name}
	}
}

// argParser accumulates the first field error while extracting typed values
// from the untrusted argument map.
type argParser struct {
	tool string
	args map[string]interface{}
	err  *ParseError
}

func (p *argParser) fail(field, detail string) {
	if p.err == nil {
		p.err = &ParseError{Tool: p.tool, Field: field, Detail: detail}
	}
}

func (p *argParser) finish(cmd Command) (Command, error) {
	if p.err != nil {
		return nil, p.err
	}
	return cmd, nil
}

func (p *argParser) requiredString(field string) string {
	v, ok := p.args[field]
	if !ok || v == nil {
		p.fail(field, "missing required field")
		return ""
	}
	s, ok := v.(string)
	if !ok {
		p.fail(field, fmt.Sprintf("expected string, got %T", v))
		return ""
	}
	return s
}

func (p *argParser) optionalString(field string) string {
	v, ok := p.args[field]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		p.fail(field, fmt.Sprintf("expected string, got %T", v))
		return ""
	}
	return s
}

func (p *argParser) optionalInt(field string) int {
	v, ok := p.args[field]
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			p.fail(field, "expected integer, got fraction")
			return 0
		}
		return int(n)
	case int:
		return n
	default:
		p.fail(field, fmt.Sprintf("expected integer, got %T", v))
		return 0
	}
}

func (p *argParser) optionalStringSlice(field string) []string {
	v, ok := p.args[field]
	if !ok || v == nil {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		p.fail(field, fmt.Sprintf("expected array of strings, got %T", v))
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			p.fail(field, fmt.Sprintf("expected array of strings, got element %T", item))
			return nil
		}
		out = append(out, s)
	}
	return out
}
