// Package edit models line-oriented file edits proposed by the assistant and
// the in-memory line buffer they are applied to.
package edit

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Action is the kind of change an Edit makes.
type Action string

const (
	// ActionInsert inserts Content as a new line before Line.
	ActionInsert Action = "insert"
	// ActionDelete removes Line after checking it equals Content.
	ActionDelete Action = "delete"
	// ActionWrite replaces the whole file with Content.
	ActionWrite Action = "write"
	// ActionDeleteFile removes the file from the repository.
	ActionDeleteFile Action = "delete_file"
)

// ErrUnknownAction is returned when decoding an action outside the closed set.
var ErrUnknownAction = errors.New("unknown edit action")

// ErrInvalidEdit is wrapped by every validation failure from Edit.Validate.
var ErrInvalidEdit = errors.New("invalid edit")

// ParseAction converts a wire value to an Action.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionInsert, ActionDelete, ActionWrite, ActionDeleteFile:
		return Action(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// UnmarshalJSON rejects actions outside the closed set.
func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// UnmarshalYAML rejects actions outside the closed set.
func (a *Action) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Edit is one proposed change to one file.
type Edit struct {
	FileName string `json:"file_name" yaml:"file_name"`
	Action   Action `json:"action" yaml:"action"`
	// Line is 1-based against the buffer left by earlier edits of the same
	// file. Ignored for write and delete_file.
	Line int `json:"line" yaml:"line"`
	// Content is the new line (insert), the expected line (delete) or the
	// whole file (write).
	Content string `json:"content" yaml:"content"`
}

// String renders the edit the way commit messages describe it.
func (e Edit) String() string {
	return fmt.Sprintf("%s at line %d", e.Action, e.Line)
}

// Validate checks the edit is structurally usable.
func (e Edit) Validate() error {
	if strings.TrimSpace(e.FileName) == "" {
		return fmt.Errorf("%w: file_name is required", ErrInvalidEdit)
	}
	if strings.HasPrefix(e.FileName, "/") {
		return fmt.Errorf("%w: file_name %q must be repository-relative", ErrInvalidEdit, e.FileName)
	}
	for _, seg := range strings.Split(e.FileName, "/") {
		if seg == ".." {
			return fmt.Errorf("%w: file_name %q escapes the repository", ErrInvalidEdit, e.FileName)
		}
	}
	if path.Clean(e.FileName) == "." {
		return fmt.Errorf("%w: file_name %q names no file", ErrInvalidEdit, e.FileName)
	}

	switch e.Action {
	case ActionInsert, ActionDelete:
		if e.Line < 1 {
			return fmt.Errorf("%w: %s on %s needs a line >= 1, got %d", ErrInvalidEdit, e.Action, e.FileName, e.Line)
		}
	case ActionWrite, ActionDeleteFile:
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalidEdit, ErrUnknownAction, e.Action)
	}
	return nil
}

// Envelope is the {"files": [...]} object the assistant emits.
type Envelope struct {
	Files []Edit `json:"files" yaml:"files"`
}

// FileBatch is the edits proposed for a single file.
type FileBatch struct {
	FileName string
	Edits    []Edit
}

// GroupByFile splits a flat edit list into per-file batches. Files appear in
// order of first appearance; edits keep their relative order.
func GroupByFile(edits []Edit) []FileBatch {
	index := make(map[string]int)
	var batches []FileBatch
	for _, e := range edits {
		i, ok := index[e.FileName]
		if !ok {
			i = len(batches)
			index[e.FileName] = i
			batches = append(batches, FileBatch{FileName: e.FileName})
		}
		batches[i].Edits = append(batches[i].Edits, e)
	}
	return batches
}

// Describe joins edits for a commit message, e.g. "insert at line 3, delete at line 5".
func Describe(edits []Edit) string {
	parts := make([]string, len(edits))
	for i, e := range edits {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
