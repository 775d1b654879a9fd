package assistant

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultSystemPrompt tells the model how to express edits.
const DefaultSystemPrompt = `You are an AI coding assistant. When providing code changes, respond with JSON in this exact format:

{
  "files": [
    {
      "file_name": "path/to/file.js",
      "action": "insert|delete|write|delete_file",
      "line": 15,
      "content": "code to insert or delete"
    }
  ]
}

Rules:
- For "insert": add content as a new line at the specified line number
- For "delete": remove the line at the specified line number (content must match that line exactly)
- For "write": replace the entire file with content (creates the file if it doesn't exist)
- For "delete_file": remove the file; line and content are ignored
- Always include line numbers; they refer to the current file content
- Process edits from highest to lowest line numbers
- For the same line: delete before insert
`

// PromptConfig overrides prompt text. Loaded from a TOML file.
type PromptConfig struct {
	System string `toml:"system"`
	// Preamble is prepended to every user message.
	Preamble string `toml:"preamble"`
	// MaxFileBytes truncates large files in context; 0 keeps them whole.
	MaxFileBytes int `toml:"max_file_bytes"`
}

// DefaultPromptConfig returns the built-in prompt settings.
func DefaultPromptConfig() *PromptConfig {
	return &PromptConfig{
		System:       DefaultSystemPrompt,
		MaxFileBytes: 64 * 1024,
	}
}

// LoadPromptConfig reads a TOML prompt file over the defaults.
func LoadPromptConfig(path string) (*PromptConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}

	cfg := DefaultPromptConfig()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parse prompt file: %w", err)
	}
	if strings.TrimSpace(cfg.System) == "" {
		cfg.System = DefaultSystemPrompt
	}
	return cfg, nil
}

// BuildUserMessage renders the user's message with repository context.
// File contents are numbered so the model can cite exact lines.
func (p *PromptConfig) BuildUserMessage(req *Request) string {
	var b strings.Builder

	if p.Preamble != "" {
		b.WriteString(p.Preamble)
		b.WriteString("\n\n")
	}

	if len(req.Paths) > 0 {
		b.WriteString("Repository files:\n")
		for _, path := range req.Paths {
			b.WriteString("- ")
			b.WriteString(path)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	for _, f := range req.Files {
		content := f.Content
		truncated := false
		if p.MaxFileBytes > 0 && len(content) > p.MaxFileBytes {
			content = content[:p.MaxFileBytes]
			truncated = true
		}

		fmt.Fprintf(&b, "Current content of %s:\n```\n", f.Path)
		if content != "" {
			for i, line := range strings.Split(content, "\n") {
				fmt.Fprintf(&b, "%4d| %s\n", i+1, line)
			}
		}
		b.WriteString("```\n")
		if truncated {
			fmt.Fprintf(&b, "(truncated to %d bytes)\n", p.MaxFileBytes)
		}
		b.WriteByte('\n')
	}

	b.WriteString(req.Message)
	return b.String()
}
